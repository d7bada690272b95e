package speechprovider

import (
	"context"

	"github.com/Amund211/lana/internal/domain"
)

// SpeechProvider synthesizes speech for a piece of text
//
// Errors wrap domain.ErrTransport when the upstream could not be reached and
// domain.ErrMalformedContent when it answered without audio.
type SpeechProvider interface {
	Synthesize(ctx context.Context, text string, voice string) (domain.Speech, error)
}
