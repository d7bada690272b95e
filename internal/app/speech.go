package app

import (
	"context"
	"fmt"

	"github.com/Amund211/lana/internal/adapters/cache"
	"github.com/Amund211/lana/internal/adapters/speechprovider"
	"github.com/Amund211/lana/internal/fingerprint"
	"github.com/Amund211/lana/internal/inflight"
	"github.com/Amund211/lana/internal/logging"
	"github.com/Amund211/lana/internal/reporting"
)

// SynthesizeSpeech returns WAV audio for text
type SynthesizeSpeech func(ctx context.Context, text string, voice string) ([]byte, error)

func getCachedAudio(ctx context.Context, store *cache.Store, key string) ([]byte, bool) {
	packed, ok := store.Get(ctx, cache.NamespaceTTS, key)
	if !ok {
		return nil, false
	}

	audio, err := speechprovider.UnpackAudio(packed)
	if err != nil {
		reporting.Report(ctx, fmt.Errorf("failed to unpack cached audio: %w", err))
		store.Delete(ctx, cache.NamespaceTTS, key)
		return nil, false
	}
	return audio, true
}

// BuildSynthesizeSpeech caches synthesized audio by text and voice.
//
// Unlike lessons there is no useful fallback for audio, so failures are returned.
func BuildSynthesizeSpeech(
	store *cache.Store,
	group *inflight.Group[[]byte],
	provider speechprovider.SpeechProvider,
) SynthesizeSpeech {
	return func(ctx context.Context, text string, voice string) ([]byte, error) {
		key := fingerprint.Text("tts", text, voice)

		if audio, ok := getCachedAudio(ctx, store, key); ok {
			return audio, nil
		}

		audio, _, err := group.Do(ctx, key, func(computeCtx context.Context) ([]byte, error) {
			if audio, ok := getCachedAudio(computeCtx, store, key); ok {
				return audio, nil
			}

			speech, err := provider.Synthesize(computeCtx, text, voice)
			if err != nil {
				// NOTE: SpeechProvider implementations handle their own error reporting
				return nil, fmt.Errorf("could not synthesize speech: %w", err)
			}

			packed := speechprovider.PackAudio(speech.Audio)
			logging.FromContext(computeCtx).InfoContext(computeCtx, "Synthesized speech",
				"audioBytes", len(speech.Audio),
				"storedBytes", len(packed),
			)
			store.Set(computeCtx, cache.NamespaceTTS, key, packed, 0)

			return speech.Audio, nil
		})
		if err != nil {
			return nil, err
		}

		return audio, nil
	}
}
