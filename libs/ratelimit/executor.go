// Package ratelimit paces outbound calls on a fixed slot grid.
//
// Unlike a token bucket there is no burst credit: every call is assigned the
// next slot, exactly 1000/qps milliseconds after the previous one, or runs
// immediately when the previous slot already lies in the past. Slots are
// assigned when a call is scheduled, not when it completes, so several calls
// may be in flight at once.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Executor assigns execution slots to scheduled operations
type Executor struct {
	mu       sync.Mutex
	interval float64 // milliseconds between slots, 0 when unpaced
	lastSlot int64   // unix milliseconds

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customizes an Executor
type Option func(*Executor)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		e.now = now
		e.sleep = sleep
	}
}

// New creates an executor admitting at most qps operations per second.
// A non-positive qps disables pacing.
func New(qps float64, opts ...Option) *Executor {
	e := &Executor{
		now:   time.Now,
		sleep: sleepContext,
	}
	if qps > 0 {
		e.interval = 1000 / qps
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Wait blocks until the next slot is due.
func (e *Executor) Wait(ctx context.Context) error {
	d := e.reserve(e.now())
	if d <= 0 {
		return ctx.Err()
	}
	return e.sleep(ctx, d)
}

// reserve claims the next slot and returns how long to wait for it.
func (e *Executor) reserve(now time.Time) time.Duration {
	if e.interval == 0 {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	nowMs := now.UnixMilli()
	next := int64(math.Ceil(float64(e.lastSlot) + e.interval))
	if next > nowMs {
		e.lastSlot = next
		return time.Duration(next-nowMs) * time.Millisecond
	}

	e.lastSlot = nowMs
	return 0
}

// Schedule runs op once its slot is due. Errors returned by op are passed
// through untouched and do not influence later slots.
func Schedule[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	if err := e.Wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	return op(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
