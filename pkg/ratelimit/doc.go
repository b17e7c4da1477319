/*
Package ratelimit groups the rate limiting primitives of dripflow.

  - leakybucket: a bucket holding up to MaxRate units that drains at
    MaxRate per TimePeriod; callers block until their amount fits

A leaky bucket starts empty, so the first MaxRate units go through at once.
After that, admissions settle at the leak rate:

	limiter := leakybucket.New(10, time.Second) // 10 per second, burst 10
	if err := limiter.AcquireN(ctx, 2); err != nil {
		return err
	}

For a check that never blocks, use HasCapacity.
*/
package ratelimit
