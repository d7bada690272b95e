package app

import (
	"context"

	"github.com/Amund211/lana/internal/adapters/cache"
)

type CacheStats struct {
	cache.Stats
	InFlight int
}

type GetCacheStats func(ctx context.Context) CacheStats

type inFlightCounter interface {
	InFlight() int
}

func BuildGetCacheStats(store *cache.Store, groups ...inFlightCounter) GetCacheStats {
	return func(ctx context.Context) CacheStats {
		inFlight := 0
		for _, group := range groups {
			inFlight += group.InFlight()
		}

		return CacheStats{
			Stats:    store.Stats(),
			InFlight: inFlight,
		}
	}
}
