// Package scheduling provides task scheduling and execution primitives.
//
//   - loop: time sources with one-shot timers; System for production and
//     Manual for tests
//   - workerpool: fixed worker pool for concurrent task execution
//   - scheduler: time-based task scheduling and cron support
//
// Worker Pool:
//
//	pool := workerpool.New(4, 100) // 4 workers, queue size 100
//	defer func() { <-pool.Shutdown() }()
//
//	task := workerpool.TaskFunc(func(ctx context.Context) error {
//		// Do work
//		return nil
//	})
//	_ = pool.Submit(task)
//
// Set workerpool.Config.Limiter to pace every task through a shared
// leakybucket.Limiter.
//
// Scheduler:
//
//	s := scheduler.NewWithConfig(scheduler.Config{WorkerPool: pool})
//	_ = s.Start()
//	defer func() { <-s.Stop() }()
//
//	_ = s.ScheduleCron("cleanup", "0 */5 * * * *", task) // every 5 minutes
package scheduling
