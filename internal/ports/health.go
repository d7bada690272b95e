package ports

import (
	"net/http"
	"strings"
	"time"

	"github.com/Amund211/lana/internal/app"
	"github.com/dustin/go-humanize"
)

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp float64           `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}

func MakeHealthHandler(
	getHealth app.GetHealth,
	middleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	handler := func(w http.ResponseWriter, r *http.Request) {
		health := getHealth(r.Context())

		writeJSON(w, r, http.StatusOK, healthResponse{
			Status:    health.Status,
			Timestamp: float64(health.Timestamp.UnixMilli()) / 1000,
			Version:   health.Version,
			Services:  health.Services,
		})
	}

	return middleware(handler)
}

type namespaceStatsResponse struct {
	Size       int   `json:"size"`
	MaxSize    int   `json:"max_size"`
	TTLSeconds int64 `json:"ttl_seconds"`
}

type cacheStatsResponse struct {
	Hits          int64                             `json:"hits"`
	Misses        int64                             `json:"misses"`
	Errors        int64                             `json:"errors"`
	Sets          int64                             `json:"sets"`
	Deletes       int64                             `json:"deletes"`
	Evictions     int64                             `json:"evictions"`
	HitRate       string                            `json:"hit_rate"`
	TotalRequests int64                             `json:"total_requests"`
	InFlight      int                               `json:"in_flight"`
	Backend       string                            `json:"backend"`
	UptimeSeconds int64                             `json:"uptime_seconds"`
	Uptime        string                            `json:"uptime"`
	Namespaces    map[string]namespaceStatsResponse `json:"namespaces"`
}

func humanizeUptime(uptime time.Duration) string {
	now := time.Now()
	return strings.TrimSpace(humanize.RelTime(now.Add(-uptime), now, "", ""))
}

func cacheStatsToResponse(stats app.CacheStats) cacheStatsResponse {
	namespaces := make(map[string]namespaceStatsResponse, len(stats.Namespaces))
	for ns, nsStats := range stats.Namespaces {
		namespaces[string(ns)] = namespaceStatsResponse{
			Size:       nsStats.Size,
			MaxSize:    nsStats.MaxSize,
			TTLSeconds: int64(nsStats.TTL.Seconds()),
		}
	}

	return cacheStatsResponse{
		Hits:          stats.Hits,
		Misses:        stats.Misses,
		Errors:        stats.Errors,
		Sets:          stats.Sets,
		Deletes:       stats.Deletes,
		Evictions:     stats.Evictions,
		HitRate:       stats.HitRate(),
		TotalRequests: stats.TotalRequests(),
		InFlight:      stats.InFlight,
		Backend:       stats.Backend,
		UptimeSeconds: int64(stats.Uptime.Seconds()),
		Uptime:        humanizeUptime(stats.Uptime),
		Namespaces:    namespaces,
	}
}

func MakeCacheStatsHandler(
	getCacheStats app.GetCacheStats,
	middleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	handler := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, cacheStatsToResponse(getCacheStats(r.Context())))
	}

	return middleware(handler)
}
