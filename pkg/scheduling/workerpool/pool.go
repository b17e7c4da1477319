package workerpool

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/dripflow/pkg/common/validation"
	"github.com/vnykmshr/dripflow/pkg/ratelimit/leakybucket"
)

const module = "workerpool"

// Task represents a unit of work that can be executed by a worker.
type Task interface {
	// Execute runs the task with the given context.
	// It should respect context cancellation and return any error encountered.
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Coster is implemented by tasks that consume more (or less) than the
// pool's default TaskCost from the shared limiter.
type Coster interface {
	Cost() float64
}

// Result represents the result of a task execution.
type Result struct {
	// Task is the original task that was executed
	Task Task

	// Error is any error that occurred during task execution, including a
	// failure to acquire rate limit capacity
	Error error

	// Duration is how long the task took, including any rate limit wait
	Duration time.Duration

	// WorkerID identifies which worker executed the task
	WorkerID int
}

// Pool represents a worker pool that can execute tasks concurrently.
type Pool interface {
	// Submit adds a task to the pool for execution.
	// Returns an error if the pool is shut down or if the task cannot be queued.
	Submit(task Task) error

	// SubmitWithTimeout submits a task with a timeout for queuing.
	// If the task cannot be queued within the timeout, it returns an error.
	SubmitWithTimeout(task Task, timeout time.Duration) error

	// SubmitWithContext submits a task with a context for cancellation.
	// The context bounds queuing, the rate limit wait and the task itself.
	SubmitWithContext(ctx context.Context, task Task) error

	// Results returns a channel of task results.
	// The channel is closed when the pool is shut down and all tasks are complete.
	Results() <-chan Result

	// Shutdown initiates a graceful shutdown of the pool.
	// No new tasks will be accepted, but queued tasks will be completed.
	// Returns a channel that closes when shutdown is complete.
	Shutdown() <-chan struct{}

	// ShutdownWithTimeout shuts down the pool with a timeout.
	// If shutdown doesn't complete within the timeout, remaining tasks are canceled.
	ShutdownWithTimeout(timeout time.Duration) <-chan struct{}

	// Size returns the number of workers in the pool.
	Size() int

	// QueueSize returns the current number of queued tasks waiting for execution.
	QueueSize() int

	// ActiveWorkers returns the number of workers currently executing tasks.
	ActiveWorkers() int

	// TotalSubmitted returns the total number of tasks submitted to the pool.
	TotalSubmitted() int64

	// TotalCompleted returns the total number of tasks completed by the pool.
	TotalCompleted() int64
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// WorkerCount is the number of workers in the pool.
	// Must be greater than 0.
	WorkerCount int

	// QueueSize is the maximum number of tasks that can be queued.
	// Zero means submissions block until a worker is free.
	QueueSize int

	// TaskTimeout is the default timeout for individual task execution.
	// Zero means no timeout. The rate limit wait is not included.
	TaskTimeout time.Duration

	// BufferedResults determines if results should be buffered.
	// If true, results are sent to a buffered channel to prevent blocking.
	// Buffer size equals worker count.
	BufferedResults bool

	// Limiter, if set, is shared by all workers: each task acquires its cost
	// from it before running.
	Limiter leakybucket.Limiter

	// TaskCost is the capacity a task acquires when it does not implement
	// Coster. Zero means 1.
	TaskCost float64

	// Logger receives task failures and panics. If nil, slog.Default() is used.
	Logger *slog.Logger

	// PanicHandler is called when a worker panics during task execution.
	// The panic is always converted into the task's result error.
	PanicHandler func(task Task, recovered interface{})

	// OnTaskStart is called before a task begins execution.
	OnTaskStart func(workerID int, task Task)

	// OnTaskComplete is called after a task completes (success or failure).
	OnTaskComplete func(workerID int, result Result)
}

// workerPool implements the Pool interface.
type workerPool struct {
	config Config
	logger *slog.Logger

	// Core pool state
	workers      []worker
	taskQueue    chan taskWithContext
	resultQueue  chan Result
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	// killCtx is canceled when a timed shutdown gives up on running tasks
	killCtx context.Context
	kill    context.CancelFunc

	// State tracking
	mu             sync.RWMutex
	isShutdown     bool
	activeWorkers  atomic.Int64
	totalSubmitted atomic.Int64
	totalCompleted atomic.Int64

	// Worker management
	workerWg sync.WaitGroup
}

type taskWithContext struct {
	task Task
	ctx  context.Context
}

// worker represents a single worker in the pool.
type worker struct {
	id   int
	pool *workerPool
}

// New creates a new worker pool with the specified number of workers and queue size.
// It panics on invalid arguments; use NewWithConfigSafe to get an error.
func New(workerCount, queueSize int) Pool {
	return NewWithConfig(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
}

// NewWithConfig creates a new worker pool with the specified configuration.
// It panics on invalid configuration.
func NewWithConfig(config Config) Pool {
	p, err := NewWithConfigSafe(config)
	if err != nil {
		panic(err)
	}
	return p
}

// NewWithConfigSafe creates a worker pool, returning an error instead of
// panicking when the configuration is invalid.
func NewWithConfigSafe(config Config) (Pool, error) {
	if err := validation.ValidatePositive(module, "worker_count", config.WorkerCount); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative(module, "queue_size", float64(config.QueueSize)); err != nil {
		return nil, err
	}
	if config.TaskCost == 0 {
		config.TaskCost = 1
	}
	if config.Limiter != nil {
		if err := validation.ValidateAmount(module, "task_cost", config.TaskCost, config.Limiter.MaxRate()); err != nil {
			return nil, err
		}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var resultQueue chan Result
	if config.BufferedResults {
		resultQueue = make(chan Result, config.WorkerCount)
	} else {
		resultQueue = make(chan Result)
	}

	killCtx, kill := context.WithCancel(context.Background())
	pool := &workerPool{
		config:      config,
		logger:      logger.With(slog.String("component", module)),
		taskQueue:   make(chan taskWithContext, config.QueueSize),
		resultQueue: resultQueue,
		shutdownCh:  make(chan struct{}),
		done:        make(chan struct{}),
		killCtx:     killCtx,
		kill:        kill,
	}

	// Create and start workers
	pool.workers = make([]worker, config.WorkerCount)
	for i := 0; i < config.WorkerCount; i++ {
		pool.workers[i] = worker{id: i, pool: pool}
		pool.workerWg.Add(1)
		go pool.workers[i].run()
	}

	return pool, nil
}
