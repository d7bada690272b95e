package speechprovider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Amund211/lana/internal/config"
	"github.com/Amund211/lana/internal/constants"
	"github.com/Amund211/lana/internal/domain"
	"github.com/Amund211/lana/internal/logging"
	"github.com/Amund211/lana/internal/reporting"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const geminiTTSModel = "gemini-2.5-flash-preview-tts"

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models/"

// Requests per minute allowed on the gemini tts preview
const geminiRequestsPerMinute = 10

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string           `json:"responseModalities"`
	SpeechConfig       geminiSpeechConfig `json:"speechConfig"`
}

type geminiSpeechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiSpeechProvider struct {
	httpClient   HttpClient
	apiKey       string
	url          string
	defaultVoice string
	limiter      *rate.Limiter

	tracer trace.Tracer
}

func NewGeminiSpeechProvider(httpClient HttpClient, apiKey string, defaultVoice string, limiter *rate.Limiter) SpeechProvider {
	return &geminiSpeechProvider{
		httpClient:   httpClient,
		apiKey:       apiKey,
		url:          geminiBaseURL + geminiTTSModel + ":generateContent",
		defaultVoice: defaultVoice,
		limiter:      limiter,

		tracer: otel.Tracer("lana/speechprovider/gemini"),
	}
}

func (g *geminiSpeechProvider) Synthesize(ctx context.Context, text string, voice string) (domain.Speech, error) {
	ctx, span := g.tracer.Start(ctx, "GeminiSpeechProvider.Synthesize")
	defer span.End()

	if voice == "" {
		voice = g.defaultVoice
	}
	span.SetAttributes(attribute.String("voice", voice), attribute.Int("text_length", len(text)))

	speech, err := g.synthesize(ctx, text, voice)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Speech{}, err
	}
	return speech, nil
}

func (g *geminiSpeechProvider) synthesize(ctx context.Context, text string, voice string) (domain.Speech, error) {
	logger := logging.FromContext(ctx)

	if err := g.limiter.Wait(ctx); err != nil {
		return domain.Speech{}, fmt.Errorf("%w: rate limit wait cancelled: %w", domain.ErrTransport, err)
	}

	request := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: text}}}},
		GenerationConfig: geminiGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
		},
	}
	request.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = voice

	body, err := json.Marshal(request)
	if err != nil {
		err := fmt.Errorf("failed to marshal request: %w", err)
		reporting.Report(ctx, err)
		return domain.Speech{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		err := fmt.Errorf("failed to create request: %w", err)
		reporting.Report(ctx, err)
		return domain.Speech{}, err
	}
	req.Header.Set("User-Agent", constants.USER_AGENT)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		err := fmt.Errorf("%w: failed to send request: %w", domain.ErrTransport, err)
		logger.ErrorContext(ctx, "gemini request failed", "error", err.Error())
		return domain.Speech{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Speech{}, fmt.Errorf("%w: failed to read response body: %w", domain.ErrTransport, err)
	}
	logger.InfoContext(ctx, "gemini request completed", "status", resp.StatusCode, "duration", time.Since(start).String())

	pcm, err := pcmFromGeminiResponse(resp.StatusCode, data)
	if err != nil {
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			reporting.Report(ctx, err, map[string]string{
				"status": strconv.Itoa(resp.StatusCode),
			})
		}
		return domain.Speech{}, err
	}

	return domain.Speech{
		Audio: EncodeWAV(pcm, SampleRate, Channels, BitsPerSample),
		Voice: voice,
	}, nil
}

func pcmFromGeminiResponse(statusCode int, data []byte) ([]byte, error) {
	if statusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: gemini returned status code %d", domain.ErrTransport, statusCode)
	}

	var response geminiResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("%w: failed to parse gemini response: %w", domain.ErrMalformedContent, err)
	}

	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to decode audio: %w", domain.ErrMalformedContent, err)
			}
			return pcm, nil
		}
	}

	return nil, fmt.Errorf("%w: gemini response has no audio", domain.ErrMalformedContent)
}

type mockedSpeechProvider struct{}

// Half a second of silence
func (mockedSpeechProvider) Synthesize(ctx context.Context, text string, voice string) (domain.Speech, error) {
	pcm := make([]byte, SampleRate*BitsPerSample/8/2)
	return domain.Speech{
		Audio: EncodeWAV(pcm, SampleRate, Channels, BitsPerSample),
		Voice: voice,
	}, nil
}

func NewMockedSpeechProvider() SpeechProvider {
	return mockedSpeechProvider{}
}

func NewSpeechProviderOrMock(conf config.Config, httpClient HttpClient) (SpeechProvider, error) {
	if conf.GoogleAPIKey() != "" {
		limiter := rate.NewLimiter(rate.Every(time.Minute/geminiRequestsPerMinute), 2)
		return NewGeminiSpeechProvider(httpClient, conf.GoogleAPIKey(), conf.GoogleTTSVoice(), limiter), nil
	}
	if conf.IsDevelopment() {
		return NewMockedSpeechProvider(), nil
	}
	return nil, fmt.Errorf("%w: missing google API key in non-development environment", config.ErrMissingRequiredValue)
}
