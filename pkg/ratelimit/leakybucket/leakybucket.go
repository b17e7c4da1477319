package leakybucket

import (
	"context"
	"math"
	"time"

	gferrors "github.com/vnykmshr/dripflow/pkg/common/errors"
	"github.com/vnykmshr/dripflow/pkg/common/validation"
	"github.com/vnykmshr/dripflow/pkg/scheduling/loop"
)

// relTolerance absorbs floating point residue when comparing the level
// against the ceiling, relative to maxRate.
const relTolerance = 1e-12

// Acquire blocks until one unit of capacity is granted.
func (lb *leakyBucket) Acquire(ctx context.Context) error {
	return lb.AcquireN(ctx, 1)
}

// AcquireN blocks until amount units of capacity are granted.
func (lb *leakyBucket) AcquireN(ctx context.Context, amount float64) error {
	if err := lb.validate(amount); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// Check if context is already canceled
	if err := ctx.Err(); err != nil {
		return err
	}

	current := lb.loopFor(ctx)

	lb.mu.Lock()
	if anomaly, ok := lb.guard(current); ok {
		lb.mu.Unlock()
		lb.report(anomaly)
		lb.mu.Lock()
	}

	now := lb.clock.Now()
	lb.leak(now)
	if lb.fits(amount) {
		lb.consume(amount)
		lb.mu.Unlock()
		return nil
	}

	w := lb.enqueue(amount)
	lb.mu.Unlock()

	select {
	case <-w.ready:
		return w.err
	case <-ctx.Done():
		return lb.abandon(w, ctx.Err())
	}
}

// HasCapacity reports whether amount units fit in the bucket right now.
func (lb *leakyBucket) HasCapacity(amount float64) (bool, error) {
	if err := lb.validate(amount); err != nil {
		return false, err
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.leak(lb.clock.Now())
	return lb.fits(amount), nil
}

// Do acquires amount units and then runs fn with the same context.
func (lb *leakyBucket) Do(ctx context.Context, amount float64, fn func(context.Context) error) error {
	if fn == nil {
		return gferrors.NewValidationError(module, "fn", nil, "cannot be nil")
	}
	if err := lb.AcquireN(ctx, amount); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx)
}

// MaxRate returns the capacity ceiling.
func (lb *leakyBucket) MaxRate() float64 {
	return lb.maxRate
}

// TimePeriod returns the leak period.
func (lb *leakyBucket) TimePeriod() time.Duration {
	return lb.timePeriod
}

// LeakRate returns units restored per second.
func (lb *leakyBucket) LeakRate() float64 {
	return lb.leakRate
}

// Level returns the current fill level of the bucket.
func (lb *leakyBucket) Level() float64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.leak(lb.clock.Now())
	return lb.level
}

// Waiters returns the number of queued callers.
func (lb *leakyBucket) Waiters() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return len(lb.waiters)
}

// Resets returns the number of cross-loop resets.
func (lb *leakyBucket) Resets() uint64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.resets
}

func (lb *leakyBucket) validate(amount float64) error {
	return validation.ValidateAmount(module, "amount", amount, lb.maxRate)
}

// loopFor returns the loop driving the call: the one carried by ctx, or the
// configured default.
func (lb *leakyBucket) loopFor(ctx context.Context) loop.Loop {
	if l, ok := loop.FromContext(ctx); ok {
		return l
	}
	return lb.defaultLoop
}

// leak drains the bucket for the time elapsed since lastCheck.
// Non-positive elapsed time leaves the state untouched.
func (lb *leakyBucket) leak(now time.Time) {
	elapsed := now.Sub(lb.lastCheck)
	if elapsed <= 0 {
		return
	}
	if lb.level > 0 {
		lb.level -= elapsed.Seconds() * lb.leakRate
		if lb.level < lb.maxRate*relTolerance {
			lb.level = 0
		}
	}
	lb.lastCheck = now
}

// fits reports whether amount can be added without exceeding maxRate.
// Callers must leak first.
func (lb *leakyBucket) fits(amount float64) bool {
	return lb.level+amount <= lb.maxRate*(1+relTolerance)
}

func (lb *leakyBucket) consume(amount float64) {
	lb.level = math.Min(lb.level+amount, lb.maxRate)
}

// delayFor converts a capacity deficit into the time needed to leak it,
// rounded up to whole nanoseconds and never less than one.
func (lb *leakyBucket) delayFor(deficit float64) time.Duration {
	if deficit <= 0 {
		return time.Nanosecond
	}
	ns := math.Ceil(deficit / lb.leakRate * float64(time.Second))
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	if ns < 1 {
		return time.Nanosecond
	}
	return time.Duration(ns)
}

// projectedReadyTime is the earliest time amount would fit if nothing else
// consumed capacity first.
func (lb *leakyBucket) projectedReadyTime(amount float64) time.Time {
	deficit := lb.level + amount - lb.maxRate
	if deficit <= 0 {
		return lb.lastCheck
	}
	return lb.lastCheck.Add(lb.delayFor(deficit))
}
