package ports

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Amund211/lana/internal/logging"
	"github.com/Amund211/lana/internal/ratelimiting"
	"github.com/Amund211/lana/internal/reporting"
)

type rateLimitResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retry_after"`
}

func setWindowHeaders(w http.ResponseWriter, decision ratelimiting.Decision) {
	w.Header().Set("X-RateLimit-Limit-Minute", strconv.FormatInt(decision.Minute.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining-Minute", strconv.FormatInt(decision.Minute.Remaining(), 10))
	w.Header().Set("X-RateLimit-Limit-Hour", strconv.FormatInt(decision.Hour.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining-Hour", strconv.FormatInt(decision.Hour.Remaining(), 10))
}

// NewRateLimitMiddleware admits requests to endpoint against the minute and hour windows of the client
func NewRateLimitMiddleware(rateLimiter *ratelimiting.TieredLimiter, endpoint string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if ratelimiting.IsBypassed(r.URL.Path) {
				next(w, r)
				return
			}

			ctx := r.Context()
			identity := ratelimiting.ClientIdentity(r)

			decision := rateLimiter.Allow(ctx, identity, endpoint)
			setWindowHeaders(w, decision)
			if decision.Allowed {
				next(w, r)
				return
			}

			rejected := decision.Rejected()
			retryAfter := int64(decision.RetryAfter() / time.Second)

			statusCode := http.StatusTooManyRequests
			logging.FromContext(ctx).InfoContext(ctx, "Rate limit exceeded",
				"statusCode", statusCode,
				"reason", "ratelimit exceeded",
				"error", decision.Err().Error(),
				"window", string(decision.RejectedBy),
				"count", rejected.Count,
			)

			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(rejected.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rejected.ResetAt.Unix(), 10))

			writeJSON(w, r, statusCode, rateLimitResponse{
				Error:      "Rate limit exceeded",
				Message:    fmt.Sprintf("Too many requests per %s. Limit: %d/%s", decision.RejectedBy, rejected.Limit, windowAbbreviation(decision.RejectedBy)),
				RetryAfter: retryAfter,
			})
		}
	}
}

func windowAbbreviation(window ratelimiting.Window) string {
	if window == ratelimiting.WindowHour {
		return "hour"
	}
	return "min"
}

// NewSecurityHeadersMiddleware sets browser hardening headers on every response
func NewSecurityHeadersMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			header := w.Header()
			header.Set("X-Content-Type-Options", "nosniff")
			header.Set("X-Frame-Options", "DENY")
			header.Set("X-XSS-Protection", "1; mode=block")
			header.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			header.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
			header.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; connect-src 'self' https:; frame-ancestors 'none'")

			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				header.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			if strings.HasPrefix(r.URL.Path, "/api/") {
				header.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
				header.Set("Pragma", "no-cache")
				header.Set("Expires", "0")
			}

			next(w, r)
		}
	}
}

type timingResponseWriter struct {
	http.ResponseWriter
	start       time.Time
	wroteHeader bool
}

func (w *timingResponseWriter) setTiming() {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	elapsed := float64(time.Since(w.start).Microseconds()) / 1000
	w.Header().Set("X-Response-Time-ms", strconv.FormatFloat(elapsed, 'f', 2, 64))
}

func (w *timingResponseWriter) WriteHeader(statusCode int) {
	w.setTiming()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *timingResponseWriter) Write(data []byte) (int, error) {
	w.setTiming()
	return w.ResponseWriter.Write(data)
}

func (w *timingResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// NewResponseTimeMiddleware reports the time until the response headers were written
func NewResponseTimeMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			next(&timingResponseWriter{ResponseWriter: w, start: time.Now()}, r)
		}
	}
}

func ComposeMiddlewares(middlewares ...func(http.HandlerFunc) http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	if len(middlewares) == 1 {
		return middlewares[0]
	}
	first := middlewares[0]
	rest := ComposeMiddlewares(middlewares[1:]...)
	return func(h http.HandlerFunc) http.HandlerFunc {
		return first(rest(h))
	}
}

// BuildEndpointMiddleware is the middleware stack shared by every endpoint
//
// rateLimiter may be nil for endpoints that are never rate limited.
func BuildEndpointMiddleware(
	endpoint string,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
	rateLimiter *ratelimiting.TieredLimiter,
) func(http.HandlerFunc) http.HandlerFunc {
	middlewares := []func(http.HandlerFunc) http.HandlerFunc{
		NewResponseTimeMiddleware(),
		buildMetricsMiddleware(endpoint),
		NewSecurityHeadersMiddleware(),
		logging.NewRequestLoggerMiddleware(rootLogger, ratelimiting.ClientIdentity),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware(endpoint),
	}
	if rateLimiter != nil {
		middlewares = append(middlewares, NewRateLimitMiddleware(rateLimiter, endpoint))
	}
	return ComposeMiddlewares(middlewares...)
}

func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, response any) {
	ctx := r.Context()

	data, err := json.Marshal(response)
	if err != nil {
		err = fmt.Errorf("failed to marshal response: %w", err)
		logging.FromContext(ctx).ErrorContext(ctx, "Failed to marshal response", "error", err)
		reporting.Report(ctx, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(data); err != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "Failed to write response", "error", err)
	}
}
