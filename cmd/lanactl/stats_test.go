package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchAndPrintCacheStats(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/cache/stats", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"hits": 12345, "misses": 5, "errors": 0, "sets": 5,
			"hit_rate": "100.0%", "total_requests": 12350, "in_flight": 1,
			"backend": "sqlite", "uptime_seconds": 7200,
			"namespaces": {
				"tts": {"size": 2, "max_size": 500, "ttl_seconds": 86400},
				"lessons": {"size": 3, "max_size": 1000, "ttl_seconds": 3600}
			}
		}`))
	}))
	defer server.Close()

	stats, err := fetchCacheStats(t.Context(), server.Client(), server.URL+"/")
	require.NoError(t, err)
	require.EqualValues(t, 12345, stats.Hits)
	require.Equal(t, "sqlite", stats.Backend)

	var out bytes.Buffer
	require.NoError(t, printCacheStats(&out, stats))
	printed := out.String()
	require.Contains(t, printed, "requests:  12,350 (hit rate 100.0%)")
	require.Contains(t, printed, "started:   2 hours ago")
	require.Regexp(t, `lessons\s+3\s+1,000\s+1h0m0s\s+tts\s+2\s+500\s+24h0m0s`, printed)
}

func TestFetchCacheStatsError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := fetchCacheStats(t.Context(), server.Client(), server.URL)
	require.ErrorContains(t, err, "429")
}

func TestFingerprintCmd(t *testing.T) {
	t.Parallel()

	run := func(args ...string) string {
		cmd := newFingerprintCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		require.NoError(t, cmd.Execute())
		return out.String()
	}

	first := run("Black", "Holes")
	second := run("  black holes  ")
	require.Equal(t, first, second)
	require.Contains(t, first, "normalized topic: black holes")

	withAge := run("black holes", "--age", "10")
	require.NotEqual(t, first, withAge)
}
