// Package metrics provides Prometheus instrumentation for dripflow components.
//
// # Overview
//
// The metrics package provides instrumentation for:
//   - Leaky bucket limiters (requests, grants, denials, wait times, level,
//     blocked waiters, cross-loop resets)
//   - Worker pools (pool size, active workers, queued tasks, outcomes)
//   - Task scheduling (scheduled and triggered tasks)
//
// # Quick Start
//
// Enable metrics by using the metrics-enabled constructors:
//
//	limiter := leakybucket.NewWithMetrics(10, time.Second, "api_quota")
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	registry := prometheus.NewRegistry()
//	limiter := leakybucket.NewWithConfigAndMetrics(
//		leakybucket.Config{MaxRate: 5, TimePeriod: time.Second},
//		"custom_limiter",
//		metrics.Config{Enabled: true, Registry: registry},
//	)
//
// # Available Metrics
//
//   - dripflow_ratelimit_requests_total
//   - dripflow_ratelimit_allowed_total
//   - dripflow_ratelimit_denied_total
//   - dripflow_ratelimit_wait_duration_seconds
//   - dripflow_ratelimit_level
//   - dripflow_ratelimit_waiters
//   - dripflow_ratelimit_resets_total
//   - dripflow_scheduler_tasks_scheduled_total
//   - dripflow_scheduler_tasks_triggered_total
//   - dripflow_workerpool_tasks_completed_total
//   - dripflow_workerpool_tasks_failed_total
//   - dripflow_workerpool_size
//   - dripflow_workerpool_active_workers
//   - dripflow_workerpool_queued_tasks
//
// Rate limit counters are measured in capacity units, not calls, so a
// request for 2.5 units adds 2.5 to requests_total.
//
// # Labels
//
//   - limiter_type: "leaky_bucket"
//   - limiter_name: user-provided name for the limiter instance
//   - scheduler_name: user-provided name for the scheduler instance
//   - pool_name: user-provided name for the worker pool instance
package metrics
