package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// GetJSON reads and decodes a JSON value. Undecodable entries are dropped and reported as misses.
func GetJSON[T any](ctx context.Context, s *Store, ns Namespace, key string) (T, bool) {
	return getJSON[T](ctx, s, ns, key, true)
}

func getJSON[T any](ctx context.Context, s *Store, ns Namespace, key string, countMiss bool) (T, bool) {
	var value T

	data, ok := s.get(ctx, ns, key, countMiss)
	if !ok {
		return value, false
	}

	if err := json.Unmarshal(data, &value); err != nil {
		s.recordError(ctx, ns, fmt.Errorf("failed to decode cached value: %w", err))
		s.Delete(ctx, ns, key)
		var empty T
		return empty, false
	}

	return value, true
}

func SetJSON[T any](ctx context.Context, s *Store, ns Namespace, key string, value T, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		s.recordError(ctx, ns, fmt.Errorf("failed to encode value: %w", err))
		return false
	}
	return s.Set(ctx, ns, key, data, ttl)
}
