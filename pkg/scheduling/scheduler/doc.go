/*
Package scheduler triggers tasks at a time, at an interval or on a cron
schedule and hands them to a worker pool.

Basic usage:

	s := scheduler.New()
	_ = s.Start()
	defer func() { <-s.Stop() }()

	_ = s.ScheduleAfter("warmup", task, 5*time.Second)
	_ = s.ScheduleRepeating("heartbeat", task, time.Minute)
	_ = s.ScheduleCron("nightly", "0 0 2 * * *", task) // seconds field first

Cron expressions have six fields with seconds first, and accept descriptors
such as "@hourly" or "@every 90s". They are evaluated in Config.Location
unless the expression starts with CRON_TZ=.

Pacing:

Without Config.WorkerPool the scheduler creates its own pool of four
workers. Setting Config.Limiter makes that pool acquire capacity from a
shared leakybucket.Limiter before every run, so a burst of due jobs drains
at the limiter's rate instead of all at once:

	limiter := leakybucket.New(10, time.Minute)
	s := scheduler.NewWithConfig(scheduler.Config{Limiter: limiter})

Due times are read from Config.Clock, which tests can replace with a
loop.Manual to move time explicitly.
*/
package scheduler
