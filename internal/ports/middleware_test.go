package ports_test

import (
	"crypto/tls"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/Amund211/lana/internal/ports"
	"github.com/Amund211/lana/internal/ratelimiting"
	"github.com/stretchr/testify/require"
)

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.March, 4, 10, 0, 15, 0, time.UTC)
	nowFunc := func() time.Time { return now }

	newHandler := func(limits ratelimiting.Limits, called *int) http.HandlerFunc {
		limiter := ratelimiting.NewTieredLimiter(
			ratelimiting.NewLimitTable(map[string]ratelimiting.Limits{"/api/tts": limits}, ratelimiting.Limits{PerMinute: 60, PerHour: 1000}),
			nil,
			nowFunc,
		)
		return ports.NewRateLimitMiddleware(limiter, "/api/tts")(func(w http.ResponseWriter, r *http.Request) {
			*called++
			w.WriteHeader(http.StatusOK)
		})
	}

	newRequest := func(path string, ip string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("X-Forwarded-For", ip+", 34.111.7.239")
		return req
	}

	t.Run("minute window", func(t *testing.T) {
		t.Parallel()

		called := 0
		handler := newHandler(ratelimiting.Limits{PerMinute: 2, PerHour: 100}, &called)

		for i := range 2 {
			w := httptest.NewRecorder()
			handler(w, newRequest("/api/tts", "12.12.123.123"))
			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, "2", w.Header().Get("X-RateLimit-Limit-Minute"))
			require.Equal(t, strconv.Itoa(1-i), w.Header().Get("X-RateLimit-Remaining-Minute"))
			require.Equal(t, "100", w.Header().Get("X-RateLimit-Limit-Hour"))
			require.Equal(t, strconv.Itoa(99-i), w.Header().Get("X-RateLimit-Remaining-Hour"))
		}

		w := httptest.NewRecorder()
		handler(w, newRequest("/api/tts", "12.12.123.123"))
		require.Equal(t, http.StatusTooManyRequests, w.Code)
		require.Equal(t, 2, called)
		require.Equal(t, "45", w.Header().Get("Retry-After"))
		require.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		require.Equal(t, "1709546460", w.Header().Get("X-RateLimit-Reset"))
		require.JSONEq(t, `{"error": "Rate limit exceeded", "message": "Too many requests per minute. Limit: 2/min", "retry_after": 45}`, w.Body.String())

		// Other clients have their own windows
		w = httptest.NewRecorder()
		handler(w, newRequest("/api/tts", "10.0.0.1"))
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("hour window", func(t *testing.T) {
		t.Parallel()

		called := 0
		handler := newHandler(ratelimiting.Limits{PerMinute: 10, PerHour: 1}, &called)

		w := httptest.NewRecorder()
		handler(w, newRequest("/api/tts", "12.12.123.123"))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		handler(w, newRequest("/api/tts", "12.12.123.123"))
		require.Equal(t, http.StatusTooManyRequests, w.Code)
		require.Equal(t, "3585", w.Header().Get("Retry-After"))
		require.JSONEq(t, `{"error": "Rate limit exceeded", "message": "Too many requests per hour. Limit: 1/hour", "retry_after": 3585}`, w.Body.String())
		require.Equal(t, 1, called)
	})

	t.Run("bypassed paths", func(t *testing.T) {
		t.Parallel()

		called := 0
		handler := newHandler(ratelimiting.Limits{PerMinute: 1, PerHour: 1}, &called)

		for range 5 {
			w := httptest.NewRecorder()
			handler(w, newRequest("/health", "12.12.123.123"))
			require.Equal(t, http.StatusOK, w.Code)
			require.Empty(t, w.Header().Get("X-RateLimit-Limit-Minute"))
		}
		require.Equal(t, 5, called)
	})
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	t.Parallel()

	handler := ports.NewSecurityHeadersMiddleware()(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("api", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodPost, "/api/tts", nil))

		require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		require.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		require.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
		require.Contains(t, w.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
		require.Contains(t, w.Header().Get("Cache-Control"), "no-store")
		require.Empty(t, w.Header().Get("Strict-Transport-Security"))
	})

	t.Run("https", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Forwarded-Proto", "https")
		w := httptest.NewRecorder()
		handler(w, req)

		require.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
		require.Empty(t, w.Header().Get("Cache-Control"))

		req = httptest.NewRequest(http.MethodGet, "/health", nil)
		req.TLS = &tls.ConnectionState{}
		w = httptest.NewRecorder()
		handler(w, req)
		require.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
	})
}

func TestResponseTimeMiddleware(t *testing.T) {
	t.Parallel()

	handler := ports.NewResponseTimeMiddleware()(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	elapsed, err := strconv.ParseFloat(w.Header().Get("X-Response-Time-ms"), 64)
	require.NoError(t, err)
	require.GreaterOrEqual(t, elapsed, 0.0)
}

func TestResponseTimeMiddlewareSupportsFlushing(t *testing.T) {
	t.Parallel()

	handler := ports.NewResponseTimeMiddleware()(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		require.NoError(t, http.NewResponseController(w).Flush())
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/structured-lesson/stream", nil))
	require.True(t, w.Flushed)
}

func TestBuildEndpointMiddleware(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := ratelimiting.NewTieredLimiter(ratelimiting.ProductionLimits(), nil, time.Now)
	middleware := ports.BuildEndpointMiddleware("/api/solve-math", logger, noopMiddleware, limiter)

	handler := middleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/api/solve-math", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Response-Time-ms"))
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "30", w.Header().Get("X-RateLimit-Limit-Minute"))
}

func TestComposeMiddlewares(t *testing.T) {
	t.Parallel()

	order := []string{}
	makeMiddleware := func(name string) func(http.HandlerFunc) http.HandlerFunc {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next(w, r)
			}
		}
	}

	handler := ports.ComposeMiddlewares(makeMiddleware("first"), makeMiddleware("second"), makeMiddleware("third"))(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})
	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"first", "second", "third", "handler"}, order)
}
