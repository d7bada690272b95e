package ratelimiting

import (
	"context"
	"fmt"
	"time"

	"github.com/Amund211/lana/internal/domain"
	"github.com/Amund211/lana/internal/logging"
)

type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
)

type WindowState struct {
	Limit   int64
	Count   int64
	ResetAt time.Time
}

func (w WindowState) Remaining() int64 {
	return max(0, w.Limit-w.Count)
}

func (w WindowState) Exceeded() bool {
	return w.Count > w.Limit
}

type Decision struct {
	Allowed bool
	// The window whose limit caused the rejection, empty when allowed
	RejectedBy Window

	Minute WindowState
	Hour   WindowState

	decidedAt time.Time
}

// Rejected returns the state of the window that caused the rejection
func (d Decision) Rejected() WindowState {
	if d.RejectedBy == WindowHour {
		return d.Hour
	}
	return d.Minute
}

// Err wraps domain.ErrRateLimitExceeded for a rejection, nil when allowed
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	rejected := d.Rejected()
	return fmt.Errorf("%w: %d/%d per %s", domain.ErrRateLimitExceeded, rejected.Count, rejected.Limit, d.RejectedBy)
}

// RetryAfter is the time until the rejecting window resets, rounded up to whole seconds
func (d Decision) RetryAfter() time.Duration {
	if d.Allowed {
		return 0
	}
	wait := d.Rejected().ResetAt.Sub(d.decidedAt)
	seconds := (wait + time.Second - 1) / time.Second
	return max(time.Second, seconds*time.Second)
}

// TieredLimiter admits requests against per-minute and per-hour fixed windows
//
// Counters live in the primary store when one is configured. Any failure of the
// primary store falls back to process-local counters for that increment.
type TieredLimiter struct {
	limits   LimitTable
	primary  CounterStore
	fallback *MemoryCounterStore
	nowFunc  func() time.Time
}

func NewTieredLimiter(limits LimitTable, primary CounterStore, nowFunc func() time.Time) *TieredLimiter {
	return &TieredLimiter{
		limits:   limits,
		primary:  primary,
		fallback: NewMemoryCounterStore(nowFunc),
		nowFunc:  nowFunc,
	}
}

// Allow counts a request from identity to endpoint and decides whether to admit it
//
// Both windows are always incremented, also for rejected requests. The minute
// window is checked first.
func (l *TieredLimiter) Allow(ctx context.Context, identity string, endpoint string) Decision {
	limits := l.limits.For(endpoint)
	now := l.nowFunc()

	minuteBucket := now.Unix() / 60
	hourBucket := now.Unix() / 3600

	minute := WindowState{
		Limit:   limits.PerMinute,
		Count:   l.increment(ctx, fmt.Sprintf("rate_limit:%s:%s:minute:%d", identity, endpoint, minuteBucket), time.Minute),
		ResetAt: time.Unix((minuteBucket+1)*60, 0),
	}
	hour := WindowState{
		Limit:   limits.PerHour,
		Count:   l.increment(ctx, fmt.Sprintf("rate_limit:%s:%s:hour:%d", identity, endpoint, hourBucket), time.Hour),
		ResetAt: time.Unix((hourBucket+1)*3600, 0),
	}

	decision := Decision{
		Allowed:   true,
		Minute:    minute,
		Hour:      hour,
		decidedAt: now,
	}
	switch {
	case minute.Exceeded():
		decision.Allowed = false
		decision.RejectedBy = WindowMinute
	case hour.Exceeded():
		decision.Allowed = false
		decision.RejectedBy = WindowHour
	}

	recordDecision(ctx, endpoint, decision)

	return decision
}

func (l *TieredLimiter) increment(ctx context.Context, key string, expiry time.Duration) int64 {
	if l.primary != nil {
		count, err := l.primary.Increment(ctx, key, expiry)
		if err == nil {
			return count
		}
		logging.FromContext(ctx).WarnContext(ctx, "Shared rate limit store failed, using local counters", "error", err.Error())
		recordFallback(ctx)
	}

	// The memory store never fails
	count, _ := l.fallback.Increment(ctx, key, expiry)
	return count
}
