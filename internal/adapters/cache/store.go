// Package cache implements the namespaced cache store.
//
// Every namespace has its own in-process LRU tier bounded by size and TTL. An
// optional shared Backend is consulted on memory misses. Backend failures are
// counted and degrade to a miss, they are never returned to the caller.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Amund211/lana/internal/domain"
	"github.com/Amund211/lana/internal/logging"
	"github.com/jellydator/ttlcache/v3"
)

// BackendEntry is a value as stored by a Backend
type BackendEntry struct {
	Value     []byte
	ExpiresAt time.Time
}

// Backend is a shared key-value store used as the second cache tier
type Backend interface {
	Get(ctx context.Context, namespace string, key string) (BackendEntry, bool, error)
	Set(ctx context.Context, namespace string, key string, value []byte, expiresAt time.Time, maxSize int) error
	Delete(ctx context.Context, namespace string, key string) error
	Exists(ctx context.Context, namespace string, key string) (bool, error)
	Name() string
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

type tier struct {
	config NamespaceConfig
	items  *ttlcache.Cache[string, entry]
}

type counters struct {
	hits      atomic.Int64
	misses    atomic.Int64
	errors    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64
}

type Store struct {
	tiers   map[Namespace]*tier
	backend Backend
	nowFunc func() time.Time

	startedAt time.Time
	counters  counters
}

type StoreOption func(*Store)

// WithBackend sets the shared second tier
func WithBackend(backend Backend) StoreOption {
	return func(s *Store) {
		s.backend = backend
	}
}

// WithNowFunc replaces the clock used for expiry checks
func WithNowFunc(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = nowFunc
	}
}

func NewStore(namespaces map[Namespace]NamespaceConfig, opts ...StoreOption) *Store {
	s := &Store{
		tiers:   make(map[Namespace]*tier, len(namespaces)),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.nowFunc()

	for ns, nsConfig := range namespaces {
		items := ttlcache.New[string, entry](
			ttlcache.WithTTL[string, entry](nsConfig.TTL),
			ttlcache.WithCapacity[string, entry](uint64(max(nsConfig.MaxSize, 1))),
			ttlcache.WithDisableTouchOnHit[string, entry](),
		)
		items.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, _ *ttlcache.Item[string, entry]) {
			if reason == ttlcache.EvictionReasonCapacityReached {
				s.counters.evictions.Add(1)
			}
		})
		go items.Start()

		s.tiers[ns] = &tier{config: nsConfig, items: items}
	}

	return s
}

// Close stops the background expiry of every namespace
func (s *Store) Close() {
	for _, t := range s.tiers {
		t.items.Stop()
	}
}

func (s *Store) BackendName() string {
	if s.backend == nil {
		return "memory"
	}
	return s.backend.Name()
}

// Get returns the value stored under key, if it exists and has not expired
func (s *Store) Get(ctx context.Context, ns Namespace, key string) ([]byte, bool) {
	return s.get(ctx, ns, key, true)
}

func (s *Store) get(ctx context.Context, ns Namespace, key string, countMiss bool) ([]byte, bool) {
	t, ok := s.tiers[ns]
	if !ok {
		s.recordError(ctx, ns, fmt.Errorf("unknown namespace %s", ns))
		return nil, false
	}

	now := s.nowFunc()

	if item := t.items.Get(key); item != nil {
		e := item.Value()
		if now.Before(e.expiresAt) {
			s.recordHit(ctx, ns, "memory")
			return e.value, true
		}
		t.items.Delete(key)
	}

	if s.backend == nil {
		if countMiss {
			s.recordMiss(ctx, ns)
		}
		return nil, false
	}

	stored, found, err := s.backend.Get(ctx, string(ns), key)
	if err != nil {
		s.recordError(ctx, ns, err)
		return nil, false
	}
	if !found || !now.Before(stored.ExpiresAt) {
		if countMiss {
			s.recordMiss(ctx, ns)
		}
		return nil, false
	}

	t.items.Set(key, entry{value: stored.Value, expiresAt: stored.ExpiresAt}, stored.ExpiresAt.Sub(now))
	s.recordHit(ctx, ns, "backend")
	return stored.Value, true
}

// Set stores value under key for ttl, or the namespace TTL if ttl is zero
//
// Returns false if the value could not be stored in every tier.
func (s *Store) Set(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration) bool {
	t, ok := s.tiers[ns]
	if !ok {
		s.recordError(ctx, ns, fmt.Errorf("unknown namespace %s", ns))
		return false
	}
	if ttl < 0 {
		return false
	}
	if ttl == 0 {
		ttl = t.config.TTL
	}

	expiresAt := s.nowFunc().Add(ttl)
	t.items.Set(key, entry{value: value, expiresAt: expiresAt}, ttl)
	s.counters.sets.Add(1)

	if s.backend == nil {
		return true
	}

	err := s.backend.Set(ctx, string(ns), key, value, expiresAt, t.config.MaxSize)
	if err != nil {
		s.recordError(ctx, ns, err)
		return false
	}
	return true
}

func (s *Store) Delete(ctx context.Context, ns Namespace, key string) {
	t, ok := s.tiers[ns]
	if !ok {
		return
	}

	t.items.Delete(key)
	s.counters.deletes.Add(1)

	if s.backend == nil {
		return
	}
	if err := s.backend.Delete(ctx, string(ns), key); err != nil {
		s.recordError(ctx, ns, err)
	}
}

// Exists reports whether a live entry exists, without affecting hit/miss accounting
func (s *Store) Exists(ctx context.Context, ns Namespace, key string) bool {
	t, ok := s.tiers[ns]
	if !ok {
		return false
	}

	if item := t.items.Get(key); item != nil && s.nowFunc().Before(item.Value().expiresAt) {
		return true
	}

	if s.backend == nil {
		return false
	}
	exists, err := s.backend.Exists(ctx, string(ns), key)
	if err != nil {
		s.recordError(ctx, ns, err)
		return false
	}
	return exists
}

func (s *Store) recordHit(ctx context.Context, ns Namespace, tierName string) {
	s.counters.hits.Add(1)
	recordLookup(ctx, ns, "hit")
	logging.FromContext(ctx).DebugContext(ctx, "Cache hit", "namespace", string(ns), "tier", tierName)
}

func (s *Store) recordMiss(ctx context.Context, ns Namespace) {
	s.counters.misses.Add(1)
	recordLookup(ctx, ns, "miss")
}

func (s *Store) recordError(ctx context.Context, ns Namespace, err error) {
	s.counters.errors.Add(1)
	recordLookup(ctx, ns, "error")
	logging.FromContext(ctx).WarnContext(
		ctx, "Cache backend failed, treating as miss",
		"namespace", string(ns),
		"error", fmt.Errorf("%w: %w", domain.ErrCacheBackend, err).Error(),
	)
}
