package ratelimiting

import (
	"context"
	"slices"
	"sync"
	"time"
)

// WindowLimiter allows at most limit operations to finish within any window
//
// Used to stay within the request quotas of upstream providers. Callers block
// until a slot frees up, or give up if their deadline would be exceeded.
type WindowLimiter struct {
	limit     int
	window    time.Duration
	nowFunc   func() time.Time
	afterFunc func(time.Duration) <-chan time.Time

	slots chan struct{}

	mu sync.Mutex
	// Completion times of the last limit operations, oldest first
	completions []time.Time
}

func NewWindowLimiter(
	limit int,
	window time.Duration,
	nowFunc func() time.Time,
	afterFunc func(time.Duration) <-chan time.Time,
) *WindowLimiter {
	slots := make(chan struct{}, limit)
	for range limit {
		slots <- struct{}{}
	}

	// Pretend all previous operations finished a full window ago
	completions := make([]time.Time, limit)
	longAgo := nowFunc().Add(-window)
	for i := range completions {
		completions[i] = longAgo
	}

	return &WindowLimiter{
		limit:       limit,
		window:      window,
		nowFunc:     nowFunc,
		afterFunc:   afterFunc,
		slots:       slots,
		completions: completions,
	}
}

// Do waits for capacity and runs operation
//
// Returns false without running operation if ctx is done first, or if waiting
// plus maxOperationTime would run past the deadline of ctx. The operation may
// report that it did not run by returning false, in which case it does not
// count against the window.
func (l *WindowLimiter) Do(ctx context.Context, maxOperationTime time.Duration, operation func() bool) bool {
	select {
	case <-l.slots:
		defer func() {
			l.slots <- struct{}{}
		}()
	case <-ctx.Done():
		return false
	}

	oldest, ok := l.takeOldest(ctx, maxOperationTime)
	if !ok {
		return false
	}
	completion := oldest
	defer func() {
		l.putCompletion(completion)
	}()

	if wait := l.waitFor(oldest); wait > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-l.afterFunc(wait):
		}
	}

	if !operation() {
		return false
	}

	completion = l.nowFunc()
	return true
}

func (l *WindowLimiter) waitFor(completion time.Time) time.Duration {
	return l.window - l.nowFunc().Sub(completion)
}

func (l *WindowLimiter) takeOldest(ctx context.Context, maxOperationTime time.Duration) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	oldest := l.completions[0]
	if deadline, ok := ctx.Deadline(); ok {
		if l.waitFor(oldest)+maxOperationTime > deadline.Sub(l.nowFunc()) {
			return time.Time{}, false
		}
	}

	l.completions = l.completions[1:]
	return oldest, true
}

func (l *WindowLimiter) putCompletion(completion time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, _ := slices.BinarySearchFunc(l.completions, completion, func(a, b time.Time) int {
		return a.Compare(b)
	})
	l.completions = slices.Insert(l.completions, i, completion)
}
