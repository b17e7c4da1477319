/*
Package leakybucket provides a cooperative leaky bucket rate limiter.

The bucket holds up to MaxRate units. Every acquisition adds its amount to
the bucket level, and the level drains continuously at MaxRate/TimePeriod
units per second. A caller whose amount does not fit blocks until enough
has leaked away. Capacity is never handed back early: finishing work does
not make room, only time does.

Basic usage:

	limiter := leakybucket.New(100, 30*time.Second) // 100 units per 30s
	if err := limiter.Acquire(ctx); err != nil {
		return err // ctx ended first
	}
	// Do rate-limited work

Weighted acquisitions:

	// A batch of 5 costs 5 units
	if err := limiter.AcquireN(ctx, 5); err != nil {
		return err
	}

Amounts must be finite and in (0, MaxRate]. Anything else fails
immediately with an error matching errors.ErrInvalidArgument.

Bursts and steady state:

A freshly created limiter starts empty, so the first MaxRate units are
granted at once. After that, throughput settles at the leak rate. Queued
callers are woken in order of the time they are projected to fit, with
ties broken by arrival, and only one timer is armed per limiter
regardless of how many callers wait.

Non-blocking check:

	if ok, _ := limiter.HasCapacity(1); !ok {
		// Shed load instead of waiting
	}

HasCapacity reconciles the level against elapsed time but never queues.
A subsequent AcquireN for the same amount on the same goroutine succeeds
without blocking.

Scoped use:

	err := limiter.Do(ctx, 1, func(ctx context.Context) error {
		return callUpstream(ctx)
	})

Loops:

A limiter's clock and timers come from a loop.Loop, either attached to the
context with loop.WithLoop or supplied as Config.Loop. The limiter binds
to the first loop that calls AcquireN. If a later call arrives from a
different loop, the limiter logs a warning, invokes Config.OnAnomaly,
releases every queued caller with errors.ErrLimiterReset, empties the
bucket and rebinds to the new loop before the triggering call proceeds.
Processes that use a single loop never see this.

Tests drive a limiter deterministically with loop.NewManual:

	clock := loop.NewManual(time.Time{})
	limiter := leakybucket.NewWithConfig(leakybucket.Config{
		MaxRate:    4,
		TimePeriod: 8 * time.Second,
		Loop:       clock,
	})
	clock.Advance(2 * time.Second) // waiters due by now are granted here

Observability:

NewWithMetrics and NewWithConfigAndMetrics return a MetricsLimiter that
exports request counts, wait times, level, queue depth and resets to
Prometheus. NewTraced wraps any Limiter so that acquisitions emit
OpenTelemetry spans.

Thread Safety:

All operations are safe for concurrent use.
*/
package leakybucket
