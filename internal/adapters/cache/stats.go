package cache

import (
	"fmt"
	"time"
)

type NamespaceStats struct {
	Size    int
	MaxSize int
	TTL     time.Duration
}

type Stats struct {
	Hits      int64
	Misses    int64
	Errors    int64
	Sets      int64
	Deletes   int64
	Evictions int64

	Namespaces map[Namespace]NamespaceStats
	Backend    string
	Uptime     time.Duration
}

func (s Stats) TotalRequests() int64 {
	return s.Hits + s.Misses
}

// HitRate formatted as a percentage with one decimal, e.g. "87.5%"
func (s Stats) HitRate() string {
	total := s.TotalRequests()
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(s.Hits)/float64(total)*100)
}

func (s *Store) Stats() Stats {
	namespaces := make(map[Namespace]NamespaceStats, len(s.tiers))
	for ns, t := range s.tiers {
		namespaces[ns] = NamespaceStats{
			Size:    t.items.Len(),
			MaxSize: t.config.MaxSize,
			TTL:     t.config.TTL,
		}
	}

	return Stats{
		Hits:       s.counters.hits.Load(),
		Misses:     s.counters.misses.Load(),
		Errors:     s.counters.errors.Load(),
		Sets:       s.counters.sets.Load(),
		Deletes:    s.counters.deletes.Load(),
		Evictions:  s.counters.evictions.Load(),
		Namespaces: namespaces,
		Backend:    s.BackendName(),
		Uptime:     s.nowFunc().Sub(s.startedAt),
	}
}

// ResetStats zeroes the counters. Stored entries are kept.
func (s *Store) ResetStats() {
	s.counters.hits.Store(0)
	s.counters.misses.Store(0)
	s.counters.errors.Store(0)
	s.counters.sets.Store(0)
	s.counters.deletes.Store(0)
	s.counters.evictions.Store(0)
}
