package ports

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Amund211/lana/internal/app"
	"github.com/Amund211/lana/internal/domain"
	"github.com/Amund211/lana/internal/logging"
	"github.com/Amund211/lana/internal/validation"
)

type ttsRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

func MakeTTSHandler(
	synthesizeSpeech app.SynthesizeSpeech,
	middleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	handler := func(w http.ResponseWriter, r *http.Request) {
		var request ttsRequest
		if err := decodeBody(w, r, &request); err != nil {
			writeInvalidBody(w, r, err)
			return
		}

		text, textErr := validation.TTSText(request.Text)
		voice, voiceErr := validation.Voice(request.Voice)
		if err := validation.Join(textErr, voiceErr); err != nil {
			writeValidationError(w, r, err)
			return
		}

		ctx := logging.AddMetaToContext(r.Context(),
			slog.Int("textLength", len(text)),
			slog.String("voice", voice),
		)
		r = r.WithContext(ctx)
		logger := logging.FromContext(ctx)

		audio, err := synthesizeSpeech(ctx, text, voice)
		if errors.Is(err, domain.ErrTransport) || errors.Is(err, context.DeadlineExceeded) {
			statusCode := http.StatusServiceUnavailable
			logger.ErrorContext(ctx, "Speech temporarily unavailable", "statusCode", statusCode, "error", err)
			writeJSON(w, r, statusCode, errorResponse{Error: "Service Unavailable", Message: "Speech synthesis is temporarily unavailable"})
			return
		} else if err != nil {
			statusCode := http.StatusInternalServerError
			logger.ErrorContext(ctx, "Error synthesizing speech", "statusCode", statusCode, "error", err)
			writeJSON(w, r, statusCode, errorResponse{Error: "Internal Server Error", Message: "Invalid TTS response"})
			return
		}

		w.Header().Set("Content-Type", "audio/wav")
		w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
		w.Header().Set("Content-Disposition", `inline; filename="speech.wav"`)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(audio); err != nil {
			logger.InfoContext(ctx, "Failed to write audio", "error", err.Error())
		}
	}

	return middleware(handler)
}
