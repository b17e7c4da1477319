package workerpool

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vnykmshr/dripflow/pkg/metrics"
)

// MetricsPool wraps a worker Pool with Prometheus metrics collection.
// Metrics can be enabled and disabled while tasks run.
type MetricsPool struct {
	pool        Pool
	name        string
	metrics     *metrics.Switch
	defaultCost float64
}

// NewWithMetrics creates a new worker pool with metrics enabled.
func NewWithMetrics(workerCount int, name string) Pool {
	// Use a separate registry for each metrics-enabled component to avoid conflicts
	registry := prometheus.NewRegistry()
	config := metrics.Config{
		Enabled:  true,
		Registry: registry,
	}

	return NewWithConfigAndMetrics(Config{
		WorkerCount: workerCount,
		QueueSize:   0, // Unbuffered by default
	}, name, config)
}

// NewWithConfigAndMetrics creates a new worker pool with custom config and metrics.
func NewWithConfigAndMetrics(config Config, name string, metricsConfig metrics.Config) Pool {
	basePool := NewWithConfig(config)

	if !metricsConfig.Enabled {
		return basePool
	}

	defaultCost := config.TaskCost
	if defaultCost == 0 {
		defaultCost = 1
	}

	mp := &MetricsPool{
		pool:        basePool,
		name:        name,
		metrics:     metrics.NewSwitch(metricsConfig),
		defaultCost: defaultCost,
	}

	// Initialize metrics
	mp.updateMetrics()

	return mp
}

// updateMetrics updates the current state metrics.
func (mp *MetricsPool) updateMetrics() {
	r := mp.metrics.Active()
	if r == nil {
		return
	}

	r.WorkerPoolSize.WithLabelValues(mp.name).Set(float64(mp.pool.Size()))
	r.WorkerPoolActive.WithLabelValues(mp.name).Set(float64(mp.pool.ActiveWorkers()))
	r.WorkerPoolQueued.WithLabelValues(mp.name).Set(float64(mp.pool.QueueSize()))
}

// Submit adds a task to the pool for execution.
func (mp *MetricsPool) Submit(task Task) error {
	return mp.SubmitWithContext(context.Background(), task)
}

// SubmitWithTimeout submits a task with a timeout for queuing.
func (mp *MetricsPool) SubmitWithTimeout(task Task, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return mp.SubmitWithContext(ctx, task)
}

// SubmitWithContext submits a task with a context for cancellation.
func (mp *MetricsPool) SubmitWithContext(ctx context.Context, task Task) error {
	if task == nil {
		return mp.pool.SubmitWithContext(ctx, nil)
	}

	// Wrap the task to collect metrics
	wrappedTask := &metricsTask{
		original: task,
		pool:     mp,
	}

	err := mp.pool.SubmitWithContext(ctx, wrappedTask)
	mp.updateMetrics()
	return err
}

// metricsTask wraps a Task to collect execution metrics.
type metricsTask struct {
	original Task
	pool     *MetricsPool
}

// Execute runs the original task and records metrics.
func (mt *metricsTask) Execute(ctx context.Context) error {
	err := mt.original.Execute(ctx)

	if r := mt.pool.metrics.Active(); r != nil {
		if err != nil {
			r.TasksFailed.WithLabelValues(mt.pool.name).Inc()
		} else {
			r.TasksCompleted.WithLabelValues(mt.pool.name).Inc()
		}
	}
	mt.pool.updateMetrics()

	return err
}

// Cost forwards the wrapped task's cost so the pool's limiter charges it.
func (mt *metricsTask) Cost() float64 {
	if c, ok := mt.original.(Coster); ok {
		return c.Cost()
	}
	return mt.pool.defaultCost
}

// Results returns a channel of task results.
func (mp *MetricsPool) Results() <-chan Result {
	return mp.pool.Results()
}

// Shutdown initiates graceful shutdown of the pool.
func (mp *MetricsPool) Shutdown() <-chan struct{} {
	return mp.pool.Shutdown()
}

// ShutdownWithTimeout shuts down the pool with a timeout.
func (mp *MetricsPool) ShutdownWithTimeout(timeout time.Duration) <-chan struct{} {
	return mp.pool.ShutdownWithTimeout(timeout)
}

// Size returns the current number of workers.
func (mp *MetricsPool) Size() int {
	return mp.pool.Size()
}

// QueueSize returns the current number of queued tasks.
func (mp *MetricsPool) QueueSize() int {
	queueSize := mp.pool.QueueSize()

	if r := mp.metrics.Active(); r != nil {
		r.WorkerPoolQueued.WithLabelValues(mp.name).Set(float64(queueSize))
	}

	return queueSize
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (mp *MetricsPool) ActiveWorkers() int {
	activeWorkers := mp.pool.ActiveWorkers()

	if r := mp.metrics.Active(); r != nil {
		r.WorkerPoolActive.WithLabelValues(mp.name).Set(float64(activeWorkers))
	}

	return activeWorkers
}

// TotalSubmitted returns the total number of tasks submitted.
func (mp *MetricsPool) TotalSubmitted() int64 {
	return mp.pool.TotalSubmitted()
}

// TotalCompleted returns the total number of tasks completed.
func (mp *MetricsPool) TotalCompleted() int64 {
	return mp.pool.TotalCompleted()
}

// EnableMetrics enables metrics collection. Passing the registerer already
// in use, or none, keeps the existing collectors.
func (mp *MetricsPool) EnableMetrics(config metrics.Config) error {
	if err := mp.metrics.Enable(config); err != nil {
		return err
	}
	mp.updateMetrics()
	return nil
}

// DisableMetrics disables metrics collection.
func (mp *MetricsPool) DisableMetrics() {
	mp.metrics.Disable()
}

// MetricsEnabled returns true if metrics are currently enabled.
func (mp *MetricsPool) MetricsEnabled() bool {
	return mp.metrics.Enabled()
}

var _ metrics.Instrumentable = (*MetricsPool)(nil)
