package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	gferrors "github.com/vnykmshr/dripflow/pkg/common/errors"
)

// Submit adds a task to the pool for execution.
// The task will be executed with context.Background().
// Use SubmitWithContext to provide a custom context.
func (p *workerPool) Submit(task Task) error {
	return p.SubmitWithContext(context.Background(), task)
}

// SubmitWithTimeout submits a task, giving up if it cannot be queued within timeout.
// The timeout only bounds queuing; the task runs with context.Background().
func (p *workerPool) SubmitWithTimeout(task Task, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return p.submit(ctx, context.Background(), task)
}

// SubmitWithContext adds a task to the pool for execution with the given context.
// The context is passed to the limiter and to the task's Execute method, enabling
// timeout and cancellation propagation. If the pool has a TaskTimeout configured,
// the effective execution timeout is the minimum of the context deadline and TaskTimeout.
func (p *workerPool) SubmitWithContext(ctx context.Context, task Task) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return p.submit(ctx, ctx, task)
}

func (p *workerPool) submit(queueCtx, taskCtx context.Context, task Task) error {
	if task == nil {
		return gferrors.NewValidationError(module, "task", nil, "cannot be nil")
	}

	p.mu.RLock()
	isShutdown := p.isShutdown
	p.mu.RUnlock()

	if isShutdown {
		return fmt.Errorf("cannot submit task: %w", gferrors.ErrClosed)
	}

	// Check if context is already canceled before attempting to queue
	// This ensures deterministic behavior for pre-canceled contexts
	select {
	case <-queueCtx.Done():
		return queueError(queueCtx)
	default:
	}

	twc := taskWithContext{
		task: task,
		ctx:  taskCtx,
	}

	select {
	case p.taskQueue <- twc:
		p.totalSubmitted.Add(1)
		return nil
	case <-p.shutdownCh:
		return fmt.Errorf("cannot submit task: %w", gferrors.ErrClosed)
	case <-queueCtx.Done():
		return queueError(queueCtx)
	}
}

// queueError explains why a task never made it into the queue. A deadline
// also matches errors.ErrTimeout.
func queueError(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("cannot submit task: %w: %w", gferrors.ErrTimeout, err)
	}
	return fmt.Errorf("cannot submit task: %w", err)
}

// Results returns a channel of task results.
func (p *workerPool) Results() <-chan Result {
	return p.resultQueue
}

// Shutdown initiates a graceful shutdown of the pool.
// Every call returns the same channel.
func (p *workerPool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.isShutdown = true
		p.mu.Unlock()

		// Workers drain the queue and exit
		close(p.shutdownCh)

		go func() {
			p.workerWg.Wait()
			p.kill()
			close(p.resultQueue)
			close(p.done)
		}()
	})

	return p.done
}

// ShutdownWithTimeout shuts down the pool, canceling the contexts of tasks
// still running or waiting for capacity once timeout elapses.
func (p *workerPool) ShutdownWithTimeout(timeout time.Duration) <-chan struct{} {
	done := p.Shutdown()

	timer := time.NewTimer(timeout)
	go func() {
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			p.logger.Warn("shutdown timed out, canceling remaining tasks",
				slog.Duration("timeout", timeout),
				slog.Int("active", p.ActiveWorkers()),
				slog.Int("queued", p.QueueSize()),
			)
			p.kill()
		}
	}()

	return done
}

// Size returns the number of workers in the pool.
func (p *workerPool) Size() int {
	return p.config.WorkerCount
}

// QueueSize returns the current number of queued tasks waiting for execution.
func (p *workerPool) QueueSize() int {
	return len(p.taskQueue)
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (p *workerPool) ActiveWorkers() int {
	return int(p.activeWorkers.Load())
}

// TotalSubmitted returns the total number of tasks submitted to the pool.
func (p *workerPool) TotalSubmitted() int64 {
	return p.totalSubmitted.Load()
}

// TotalCompleted returns the total number of tasks completed by the pool.
func (p *workerPool) TotalCompleted() int64 {
	return p.totalCompleted.Load()
}

// run is the main loop for a worker.
func (w *worker) run() {
	defer w.pool.workerWg.Done()

	for {
		select {
		case twc := <-w.pool.taskQueue:
			w.executeTask(twc)
		case <-w.pool.shutdownCh:
			// Finish whatever is still queued, then exit
			for {
				select {
				case twc := <-w.pool.taskQueue:
					w.executeTask(twc)
				default:
					return
				}
			}
		}
	}
}

// sendResult sends a task result to the result queue with appropriate handling.
func (w *worker) sendResult(result Result) {
	select {
	case w.pool.resultQueue <- result:
	case <-w.pool.killCtx.Done():
		// Pool is being torn down, don't block on result delivery
	case <-time.After(100 * time.Millisecond):
		// Nobody is reading results; drop it
	}
}

// cost returns the limiter capacity the task needs.
func (p *workerPool) cost(task Task) float64 {
	if c, ok := task.(Coster); ok {
		return c.Cost()
	}
	return p.config.TaskCost
}

// executeTask waits for rate limit capacity, then executes a single task.
func (w *worker) executeTask(twc taskWithContext) {
	p := w.pool
	start := time.Now()
	var err error

	p.activeWorkers.Add(1)

	// Handle panics during task execution
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v\nStack trace:\n%s", r, debug.Stack())
			p.logger.Error("task panicked", slog.Int("worker", w.id), slog.Any("panic", r))
			if p.config.PanicHandler != nil {
				p.config.PanicHandler(twc.task, r)
			}
		}

		result := Result{
			Task:     twc.task,
			Error:    err,
			Duration: time.Since(start),
			WorkerID: w.id,
		}
		p.activeWorkers.Add(-1)
		p.totalCompleted.Add(1)

		if p.config.OnTaskComplete != nil {
			p.config.OnTaskComplete(w.id, result)
		}
		w.sendResult(result)
	}()

	// Start with the caller-provided context, canceled if a timed shutdown gives up
	ctx, cancel := context.WithCancel(twc.ctx)
	defer cancel()
	stop := context.AfterFunc(p.killCtx, cancel)
	defer stop()

	if p.config.Limiter != nil {
		cost := p.cost(twc.task)
		if err = p.config.Limiter.AcquireN(ctx, cost); err != nil {
			p.logger.Warn("task skipped, rate limit not acquired",
				slog.Int("worker", w.id),
				slog.Float64("cost", cost),
				slog.Any("error", err),
			)
			err = fmt.Errorf("%w: %w", gferrors.ErrRateLimited, err)
			return
		}
	}

	if p.config.OnTaskStart != nil {
		p.config.OnTaskStart(w.id, twc.task)
	}

	// Apply TaskTimeout if configured
	// The effective timeout is the minimum of the context deadline and TaskTimeout
	if p.config.TaskTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, p.config.TaskTimeout)
		defer cancelTimeout()
	}

	// Execute the task with the propagated context
	err = twc.task.Execute(ctx)
	if err != nil {
		p.logger.Debug("task failed", slog.Int("worker", w.id), slog.Any("error", err))
	}
}
