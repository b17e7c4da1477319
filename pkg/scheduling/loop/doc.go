/*
Package loop models the scheduler instance that drives rate-limited work.

A Loop provides the three things a cooperative limiter needs from its
runtime: a monotonic clock, one-shot timers, and an identity that can be
compared. The identity travels with a context.Context so that a limiter can
tell which loop is driving a given call:

	ctx := loop.WithLoop(context.Background(), myLoop)
	err := limiter.Acquire(ctx) // bound to myLoop

Two implementations are provided:

  - System: real time, backed by time.Now and time.AfterFunc. Default returns
    a process-wide instance; New creates independent instances.
  - Manual: a virtual clock for tests and simulations. Timers only fire
    when Advance or Set move the clock past their deadline.

Manual example:

	clock := loop.NewManual(time.Time{})
	clock.AfterFunc(2*time.Second, func() { fmt.Println("tick") })
	clock.Advance(time.Second) // nothing
	clock.Advance(time.Second) // prints "tick"
*/
package loop
