package app_test

import (
	"context"
	"sync"
	"testing"

	"github.com/Amund211/lana/internal/adapters/cache"
	"github.com/Amund211/lana/internal/adapters/generator"
)

type stubGenerator struct {
	mu       sync.Mutex
	requests []generator.Request

	// Blocks Generate until closed, if set
	release chan struct{}
	respond func(ctx context.Context, request generator.Request) (string, error)
}

func (g *stubGenerator) Generate(ctx context.Context, request generator.Request) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, request)
	g.mu.Unlock()

	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.respond(ctx, request)
}

func (g *stubGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func respondWith(content string, err error) func(context.Context, generator.Request) (string, error) {
	return func(context.Context, generator.Request) (string, error) {
		return content, err
	}
}

func newStore(t *testing.T) *cache.Store {
	t.Helper()
	store := cache.NewStore(cache.DefaultNamespaceConfigs())
	t.Cleanup(store.Close)
	return store
}
