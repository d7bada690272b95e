package ratelimiting_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Amund211/lana/internal/ratelimiting"
	"github.com/stretchr/testify/require"
)

type mockedTime struct {
	t           *testing.T
	currentTime time.Time
	timers      []mockedTimer
	lock        sync.Mutex
	afterCalls  atomic.Int32
}

type mockedTimer struct {
	expiresAt time.Time
	ch        chan<- time.Time
}

func newMockedTime(t *testing.T, start time.Time) *mockedTime {
	return &mockedTime{
		t:           t,
		currentTime: start,
	}
}

func (m *mockedTime) Now() time.Time {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.currentTime
}

func (m *mockedTime) After(d time.Duration) <-chan time.Time {
	m.lock.Lock()
	defer m.lock.Unlock()

	ch := make(chan time.Time, 1)
	m.timers = append(m.timers, mockedTimer{
		ch:        ch,
		expiresAt: m.currentTime.Add(d),
	})
	m.afterCalls.Add(1)

	return ch
}

func (m *mockedTime) advance(d time.Duration) {
	m.t.Helper()

	m.lock.Lock()
	defer m.lock.Unlock()

	m.currentTime = m.currentTime.Add(d)

	var remainingTimers []mockedTimer
	for _, timer := range m.timers {
		if !m.currentTime.Before(timer.expiresAt) {
			timer.ch <- m.currentTime
			close(timer.ch)
		} else {
			remainingTimers = append(remainingTimers, timer)
		}
	}
	m.timers = remainingTimers
}

// Only the deadline is mocked, the context is never done
type deadlineContext struct {
	context.Context
	deadline time.Time
}

func (c deadlineContext) Deadline() (time.Time, bool) {
	return c.deadline, true
}

func TestWindowLimiter(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	t.Run("operations within the limit run immediately", func(t *testing.T) {
		t.Parallel()
		clock := newMockedTime(t, start)
		limiter := ratelimiting.NewWindowLimiter(3, time.Minute, clock.Now, clock.After)

		ran := 0
		for range 3 {
			require.True(t, limiter.Do(t.Context(), time.Second, func() bool {
				ran++
				return true
			}))
		}
		require.Equal(t, 3, ran)
		require.Equal(t, int32(0), clock.afterCalls.Load())
	})

	t.Run("waits for the window to pass", func(t *testing.T) {
		t.Parallel()
		clock := newMockedTime(t, start)
		limiter := ratelimiting.NewWindowLimiter(2, time.Minute, clock.Now, clock.After)

		for range 2 {
			require.True(t, limiter.Do(t.Context(), time.Second, func() bool { return true }))
		}

		clock.advance(20 * time.Second)

		done := make(chan bool)
		go func() {
			done <- limiter.Do(context.Background(), time.Second, func() bool { return true })
		}()

		require.Eventually(t, func() bool {
			return clock.afterCalls.Load() == 1
		}, time.Second, time.Millisecond)

		select {
		case <-done:
			require.Fail(t, "operation ran before the window passed")
		default:
		}

		clock.advance(40 * time.Second)
		require.True(t, <-done)
	})

	t.Run("gives up when the deadline would be exceeded", func(t *testing.T) {
		t.Parallel()
		clock := newMockedTime(t, start)
		limiter := ratelimiting.NewWindowLimiter(1, time.Minute, clock.Now, clock.After)

		require.True(t, limiter.Do(t.Context(), time.Second, func() bool { return true }))

		ctx := deadlineContext{Context: context.Background(), deadline: clock.Now().Add(30 * time.Second)}

		ran := false
		require.False(t, limiter.Do(ctx, time.Second, func() bool {
			ran = true
			return true
		}))
		require.False(t, ran)
		require.Equal(t, int32(0), clock.afterCalls.Load())

		// Enough time left once the window has mostly passed
		clock.advance(45 * time.Second)
		ctx = deadlineContext{Context: context.Background(), deadline: clock.Now().Add(30 * time.Second)}
		done := make(chan bool)
		go func() {
			done <- limiter.Do(ctx, time.Second, func() bool { return true })
		}()
		require.Eventually(t, func() bool {
			return clock.afterCalls.Load() == 1
		}, time.Second, time.Millisecond)
		clock.advance(15 * time.Second)
		require.True(t, <-done)
	})

	t.Run("cancelled operations do not count", func(t *testing.T) {
		t.Parallel()
		clock := newMockedTime(t, start)
		limiter := ratelimiting.NewWindowLimiter(1, time.Minute, clock.Now, clock.After)

		require.False(t, limiter.Do(t.Context(), time.Second, func() bool { return false }))
		require.True(t, limiter.Do(t.Context(), time.Second, func() bool { return true }))
		require.Equal(t, int32(0), clock.afterCalls.Load())
	})

	t.Run("done context", func(t *testing.T) {
		t.Parallel()
		clock := newMockedTime(t, start)
		limiter := ratelimiting.NewWindowLimiter(1, time.Minute, clock.Now, clock.After)

		require.True(t, limiter.Do(t.Context(), time.Second, func() bool { return true }))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan bool)
		go func() {
			done <- limiter.Do(ctx, time.Second, func() bool { return true })
		}()

		require.Eventually(t, func() bool {
			return clock.afterCalls.Load() == 1
		}, time.Second, time.Millisecond)
		cancel()
		require.False(t, <-done)
	})
}
