package ratelimiting

import (
	"context"
	"sync"
	"time"
)

// CounterStore atomically increments expiring counters
type CounterStore interface {
	Increment(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

type memoryCounter struct {
	count     int64
	createdAt time.Time
	expiresAt time.Time
}

// MemoryCounterStore is a process-local CounterStore
//
// Counters older than maxAge are removed by a sweep at most every sweepInterval,
// run as part of Increment.
type MemoryCounterStore struct {
	nowFunc       func() time.Time
	sweepInterval time.Duration
	maxAge        time.Duration

	mu        sync.Mutex
	counters  map[string]*memoryCounter
	lastSweep time.Time
}

func NewMemoryCounterStore(nowFunc func() time.Time) *MemoryCounterStore {
	return &MemoryCounterStore{
		nowFunc:       nowFunc,
		sweepInterval: 5 * time.Minute,
		maxAge:        time.Hour,
		counters:      make(map[string]*memoryCounter),
		lastSweep:     nowFunc(),
	}
}

func (s *MemoryCounterStore) Increment(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	if now.Sub(s.lastSweep) >= s.sweepInterval {
		s.sweep(now)
	}

	counter, ok := s.counters[key]
	if !ok || !now.Before(counter.expiresAt) {
		counter = &memoryCounter{createdAt: now, expiresAt: now.Add(expiry)}
		s.counters[key] = counter
	}
	counter.count++

	return counter.count, nil
}

// Len returns the number of live counters
func (s *MemoryCounterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

func (s *MemoryCounterStore) sweep(now time.Time) {
	for key, counter := range s.counters {
		if now.Sub(counter.createdAt) >= s.maxAge || !now.Before(counter.expiresAt) {
			delete(s.counters, key)
		}
	}
	s.lastSweep = now
}
