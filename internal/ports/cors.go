package ports

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

type AllowedOrigins struct {
	origins []string
}

func NewAllowedOrigins(origins ...string) (*AllowedOrigins, error) {
	for _, origin := range origins {
		parsed, err := url.Parse(origin)
		if err != nil {
			return nil, fmt.Errorf("invalid origin %s: %w", origin, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return nil, fmt.Errorf("origin %s should have an http or https scheme", origin)
		}
		if parsed.Host == "" || (parsed.Path != "" && parsed.Path != "/") {
			return nil, fmt.Errorf("origin %s should be scheme://host[:port]", origin)
		}
	}

	normalized := make([]string, 0, len(origins))
	for _, origin := range origins {
		normalized = append(normalized, strings.TrimSuffix(origin, "/"))
	}
	return &AllowedOrigins{origins: normalized}, nil
}

func (o *AllowedOrigins) Allows(origin string) bool {
	return origin != "" && slices.Contains(o.origins, origin)
}

func BuildCORSMiddleware(allowedOrigins *AllowedOrigins) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if allowedOrigins.Allows(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")

				if r.Method == http.MethodOptions {
					w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
					w.Header().Set("Access-Control-Max-Age", "600")
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}

			next(w, r)
		}
	}
}

func BuildCORSHandler(allowedOrigins *AllowedOrigins) http.HandlerFunc {
	return BuildCORSMiddleware(allowedOrigins)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}
