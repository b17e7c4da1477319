/*
Package workerpool runs tasks on a fixed set of worker goroutines, optionally
pacing them through a shared leaky bucket limiter.

Basic usage:

	pool := workerpool.New(4, 100) // 4 workers, queue size 100
	defer func() { <-pool.Shutdown() }()

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		// Do work
		return nil
	})

	if err := pool.Submit(task); err != nil {
		log.Printf("Failed to submit: %v", err)
	}

	// Process result
	result := <-pool.Results()
	if result.Error != nil {
		log.Printf("Task failed: %v", result.Error)
	}

Rate limiting:

When Config.Limiter is set, every worker acquires capacity before running a
task. The cost is Config.TaskCost (default 1) unless the task implements
Coster. The wait uses the task's context, so a canceled or expired context
turns into the task's result error without running the task:

	limiter := leakybucket.New(100, time.Minute)
	pool := workerpool.NewWithConfig(workerpool.Config{
		WorkerCount: 8,
		QueueSize:   64,
		Limiter:     limiter,
	})

Capacity is spent when the task starts, whether the task then succeeds or
not.

Shutdown:

Shutdown stops accepting tasks, lets workers finish what is queued and then
closes the Results channel. ShutdownWithTimeout additionally cancels the
contexts of tasks still running or waiting for capacity once the timeout
elapses.

Results that nobody reads within 100ms are dropped; use BufferedResults or
keep a reader running.

Panics inside tasks are recovered, logged and reported as the task's error.
*/
package workerpool
