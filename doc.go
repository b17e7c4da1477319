/*
Package dripflow provides a cooperative leaky bucket rate limiter for Go
applications, plus the worker pool and scheduler plumbing to put it to use.

Rate Limiting (pkg/ratelimit):
  - leakybucket: Leaky bucket limiter with bursts up to its capacity,
    fair wake-up of blocked callers and Prometheus/OpenTelemetry decorators

Task Scheduling (pkg/scheduling):
  - loop: Clock and timer sources, including a manual clock for tests
  - workerpool: Background task processing, optionally paced by a limiter
  - scheduler: Cron and interval-based scheduling onto a worker pool

Support:
  - config: Limiter settings from the environment, .env files or YAML
  - metrics: Prometheus registry shared by all components

Example usage:

	import (
		"github.com/vnykmshr/dripflow/pkg/ratelimit/leakybucket"
		"github.com/vnykmshr/dripflow/pkg/scheduling/workerpool"
	)

	limiter, _ := leakybucket.NewSafe(100, time.Minute) // 100 per minute, burst 100
	pool := workerpool.NewWithConfig(workerpool.Config{
		WorkerCount: 5,
		QueueSize:   100,
		Limiter:     limiter,
	})

	if err := limiter.Acquire(ctx); err != nil {
		return err
	}

See individual package documentation for detailed usage.
*/
package dripflow
