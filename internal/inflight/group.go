// Package inflight collapses concurrent identical computations into one.
package inflight

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Amund211/lana/internal/logging"
)

var ErrComputeTimeout = errors.New("computation timed out")
var ErrComputePanicked = errors.New("computation panicked")

type ticket[T any] struct {
	done    chan struct{}
	waiters int

	result T
	err    error
}

type outcome[T any] struct {
	result T
	err    error
}

// Group runs at most one computation per key at a time.
//
// Callers arriving while a computation for their key is pending wait for, and
// share, its result. Computations run on a context detached from the caller that
// started them, so a caller going away does not cancel the work for everyone else.
type Group[T any] struct {
	name    string
	timeout time.Duration

	mu      sync.Mutex
	tickets map[string]*ticket[T]
}

// NewGroup creates a group whose computations are cancelled after timeout.
//
// A timeout of zero means computations are only bounded by their own behaviour.
func NewGroup[T any](name string, timeout time.Duration) *Group[T] {
	return &Group[T]{
		name:    name,
		timeout: timeout,
		tickets: make(map[string]*ticket[T]),
	}
}

// Do returns the result of compute for key, starting it only if no computation
// for key is already in flight.
//
// The returned bool reports whether the caller joined an existing computation.
func (g *Group[T]) Do(ctx context.Context, key string, compute func(context.Context) (T, error)) (T, bool, error) {
	g.mu.Lock()
	if t, ok := g.tickets[key]; ok {
		t.waiters++
		g.mu.Unlock()

		recordJoin(ctx, g.name)
		logging.FromContext(ctx).InfoContext(ctx, "Joining in-flight computation", "group", g.name)

		result, err := g.wait(ctx, key, t)
		return result, true, err
	}

	t := &ticket[T]{
		done:    make(chan struct{}),
		waiters: 1,
	}
	g.tickets[key] = t
	g.mu.Unlock()

	go g.run(ctx, key, t, compute)

	result, err := g.wait(ctx, key, t)
	return result, false, err
}

// InFlight returns the number of pending computations
func (g *Group[T]) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tickets)
}

// Waiters returns the number of callers waiting on the computation for key
func (g *Group[T]) Waiters(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.tickets[key]
	if !ok {
		return 0
	}
	return t.waiters
}

func (g *Group[T]) wait(ctx context.Context, key string, t *ticket[T]) (T, error) {
	select {
	case <-t.done:
		return t.result, t.err
	default:
	}

	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		g.mu.Lock()
		if g.tickets[key] == t {
			t.waiters--
		}
		g.mu.Unlock()

		logging.FromContext(ctx).InfoContext(ctx, "Abandoned in-flight computation", "group", g.name)

		var empty T
		return empty, ctx.Err()
	}
}

func (g *Group[T]) run(ctx context.Context, key string, t *ticket[T], compute func(context.Context) (T, error)) {
	computeCtx := context.WithoutCancel(ctx)
	cancel := func() {}
	if g.timeout > 0 {
		computeCtx, cancel = context.WithTimeout(computeCtx, g.timeout)
	}
	defer cancel()

	outcomes := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var empty T
				outcomes <- outcome[T]{result: empty, err: fmt.Errorf("%w: %v", ErrComputePanicked, r)}
			}
		}()
		result, err := compute(computeCtx)
		outcomes <- outcome[T]{result: result, err: err}
	}()

	var settled outcome[T]
	select {
	case settled = <-outcomes:
	case <-computeCtx.Done():
		settled.err = fmt.Errorf("%w after %s: %w", ErrComputeTimeout, g.timeout, computeCtx.Err())
	}

	// Unregister before delivering so that callers arriving after settlement
	// start over from the cache instead of joining a finished ticket
	g.mu.Lock()
	delete(g.tickets, key)
	g.mu.Unlock()

	t.result = settled.result
	t.err = settled.err
	close(t.done)
}
