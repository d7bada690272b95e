package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Amund211/lana/internal/constants"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type namespaceStats struct {
	Size       int   `json:"size"`
	MaxSize    int   `json:"max_size"`
	TTLSeconds int64 `json:"ttl_seconds"`
}

type cacheStats struct {
	Hits          int64                     `json:"hits"`
	Misses        int64                     `json:"misses"`
	Errors        int64                     `json:"errors"`
	Sets          int64                     `json:"sets"`
	HitRate       string                    `json:"hit_rate"`
	TotalRequests int64                     `json:"total_requests"`
	InFlight      int                       `json:"in_flight"`
	Backend       string                    `json:"backend"`
	UptimeSeconds int64                     `json:"uptime_seconds"`
	Namespaces    map[string]namespaceStats `json:"namespaces"`
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func fetchCacheStats(ctx context.Context, httpClient *http.Client, baseURL string) (cacheStats, error) {
	url := strings.TrimSuffix(baseURL, "/") + "/api/cache/stats"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return cacheStats{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", constants.USER_AGENT)

	resp, err := httpClient.Do(req)
	if err != nil {
		return cacheStats{}, fmt.Errorf("failed to fetch stats: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return cacheStats{}, fmt.Errorf("failed to read stats: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return cacheStats{}, fmt.Errorf("stats endpoint returned %d: %s", resp.StatusCode, string(data))
	}

	var stats cacheStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return cacheStats{}, fmt.Errorf("failed to parse stats: %w", err)
	}
	return stats, nil
}

func printCacheStats(out io.Writer, stats cacheStats) error {
	uptime := time.Duration(stats.UptimeSeconds) * time.Second
	now := time.Now()

	fmt.Fprintf(out, "backend:   %s\n", stats.Backend)
	fmt.Fprintf(out, "started:   %s\n", humanize.Time(now.Add(-uptime)))
	fmt.Fprintf(out, "requests:  %s (hit rate %s)\n", humanize.Comma(stats.TotalRequests), stats.HitRate)
	fmt.Fprintf(out, "hits:      %s\n", humanize.Comma(stats.Hits))
	fmt.Fprintf(out, "misses:    %s\n", humanize.Comma(stats.Misses))
	fmt.Fprintf(out, "errors:    %s\n", humanize.Comma(stats.Errors))
	fmt.Fprintf(out, "sets:      %s\n", humanize.Comma(stats.Sets))
	fmt.Fprintf(out, "in flight: %d\n\n", stats.InFlight)

	names := make([]string, 0, len(stats.Namespaces))
	for name := range stats.Namespaces {
		names = append(names, name)
	}
	slices.Sort(names)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAMESPACE\tSIZE\tMAX\tTTL")
	for _, name := range names {
		ns := stats.Namespaces[name]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, humanize.Comma(int64(ns.Size)), humanize.Comma(int64(ns.MaxSize)), time.Duration(ns.TTLSeconds)*time.Second)
	}
	return w.Flush()
}

func newStatsCmd(newLogger func() *slog.Logger) *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			logger.Debug("Fetching cache stats", "url", baseURL)

			stats, err := fetchCacheStats(cmd.Context(), newHTTPClient(), baseURL)
			if err != nil {
				return err
			}
			return printCacheStats(cmd.OutOrStdout(), stats)
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "base url of the server")

	return cmd
}
