package logging

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

const CorrelationIDHeader = "X-Request-Id"

// NewRequestLoggerMiddleware attaches a request scoped logger to the request context.
//
// clientIDFunc resolves the identity of the caller (typically the client ip).
func NewRequestLoggerMiddleware(logger *slog.Logger, clientIDFunc func(r *http.Request) string) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			correlationID := uuid.New().String()
			w.Header().Set(CorrelationIDHeader, correlationID)

			userAgent := r.UserAgent()
			if userAgent == "" {
				userAgent = "<missing>"
			}

			requestLogger := logger.With(
				slog.String("correlationID", correlationID),
				slog.String("clientID", clientIDFunc(r)),
				slog.String("userAgent", userAgent),
				slog.String("methodPath", fmt.Sprintf("%s %s", r.Method, r.URL.Path)),
			)

			next(w, r.WithContext(AddToContext(r.Context(), requestLogger)))
		}
	}
}
