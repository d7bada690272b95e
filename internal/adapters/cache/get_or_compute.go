package cache

import (
	"context"
	"fmt"

	"github.com/Amund211/lana/internal/inflight"
	"github.com/Amund211/lana/internal/logging"
)

type Lookup int

const (
	LookupHit Lookup = iota
	LookupComputed
	LookupJoined
)

func (l Lookup) String() string {
	switch l {
	case LookupHit:
		return "hit"
	case LookupComputed:
		return "computed"
	case LookupJoined:
		return "joined"
	}
	return "unknown"
}

// GetOrCompute returns the cached value for key, or computes and caches it.
//
// Concurrent misses for the same key share one computation through group.
// Failed computations are not cached.
func GetOrCompute[T any](
	ctx context.Context,
	store *Store,
	group *inflight.Group[T],
	ns Namespace,
	key string,
	compute func(context.Context) (T, error),
) (T, Lookup, error) {
	if value, ok := GetJSON[T](ctx, store, ns, key); ok {
		return value, LookupHit, nil
	}

	value, joined, err := group.Do(ctx, string(ns)+"/"+key, func(computeCtx context.Context) (T, error) {
		// A computation for this key may have settled between our lookup and registering
		if value, ok := getJSON[T](computeCtx, store, ns, key, false); ok {
			return value, nil
		}

		logging.FromContext(computeCtx).InfoContext(computeCtx, "Computing cache entry", "namespace", string(ns))

		value, err := compute(computeCtx)
		if err != nil {
			var empty T
			return empty, fmt.Errorf("failed to compute cache entry: %w", err)
		}

		SetJSON(computeCtx, store, ns, key, value, 0)

		return value, nil
	})
	if err != nil {
		var empty T
		return empty, LookupComputed, err
	}

	if joined {
		return value, LookupJoined, nil
	}
	return value, LookupComputed, nil
}
