package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	gferrors "github.com/vnykmshr/dripflow/pkg/common/errors"
	"github.com/vnykmshr/dripflow/pkg/common/validation"
	"github.com/vnykmshr/dripflow/pkg/metrics"
	"github.com/vnykmshr/dripflow/pkg/ratelimit/leakybucket"
	"github.com/vnykmshr/dripflow/pkg/scheduling/loop"
	"github.com/vnykmshr/dripflow/pkg/scheduling/workerpool"
)

const (
	module      = "scheduler"
	maxIDLength = 255
)

// Task represents a scheduled task.
type Task struct {
	ID       string
	RunAt    time.Time
	Interval time.Duration // Zero for one-time and cron tasks
	Cron     string        // Empty unless scheduled with ScheduleCron
	Created  time.Time
}

// Scheduler submits tasks to a worker pool at fixed times, at intervals or
// on cron schedules.
type Scheduler interface {
	// Basic scheduling
	Schedule(id string, task workerpool.Task, runAt time.Time) error
	ScheduleAfter(id string, task workerpool.Task, delay time.Duration) error
	ScheduleRepeating(id string, task workerpool.Task, interval time.Duration) error

	// Cron scheduling
	ScheduleCron(id string, cronExpr string, task workerpool.Task) error

	// Task management
	Cancel(id string) bool
	CancelAll()
	List() []Task

	// Lifecycle
	Start() error
	Stop() <-chan struct{}
}

// BackoffTask wraps a task with retry logic.
type BackoffTask struct {
	Task         workerpool.Task
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Execute implements workerpool.Task with exponential backoff.
func (bt BackoffTask) Execute(ctx context.Context) error {
	var lastErr error
	delay := bt.InitialDelay

	for attempt := 0; attempt <= bt.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = bt.Task.Execute(ctx)
		if lastErr == nil {
			return nil
		}

		// Double delay for next attempt
		delay *= 2
		if bt.MaxDelay > 0 && delay > bt.MaxDelay {
			delay = bt.MaxDelay
		}
	}

	return lastErr
}

// Cost forwards the wrapped task's cost to a rate limited pool.
func (bt BackoffTask) Cost() float64 {
	if c, ok := bt.Task.(workerpool.Coster); ok {
		return c.Cost()
	}
	return 1
}

// Config holds scheduler configuration.
type Config struct {
	// WorkerPool runs due tasks. If nil, the scheduler creates and owns a
	// pool of 4 workers.
	WorkerPool workerpool.Pool

	// Limiter paces the scheduler's own pool. Ignored when WorkerPool is set.
	Limiter leakybucket.Limiter

	// Location is used to evaluate cron expressions (default: time.Local).
	Location *time.Location

	// TickInterval is how often to check for ready tasks (default: 50ms).
	TickInterval time.Duration

	// MaxTasks is the maximum number of scheduled tasks (default: 10000).
	MaxTasks int

	// Clock decides when tasks are due (default: loop.Default()).
	Clock loop.Loop

	// Name labels log lines and metrics.
	Name string

	// Logger receives submission failures. If nil, slog.Default() is used.
	Logger *slog.Logger

	// Metrics, if set, counts scheduled and triggered tasks.
	Metrics *metrics.Registry
}

type scheduledTask struct {
	id           string
	task         workerpool.Task
	runAt        time.Time
	interval     time.Duration
	cronExpr     string
	cronSchedule cron.Schedule
	created      time.Time
}

// scheduler implements the Scheduler interface.
type scheduler struct {
	pool         workerpool.Pool
	ownPool      bool
	location     *time.Location
	tickInterval time.Duration
	maxTasks     int
	clock        loop.Loop
	name         string
	logger       *slog.Logger
	metrics      *metrics.Registry

	mu      sync.RWMutex
	tasks   map[string]*scheduledTask
	done    chan struct{}
	running bool
	wg      sync.WaitGroup
}

// New creates a scheduler with default configuration.
func New() Scheduler {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(cfg Config) Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pool := cfg.WorkerPool
	ownPool := false
	if pool == nil {
		pool = workerpool.NewWithConfig(workerpool.Config{
			WorkerCount: 4,
			QueueSize:   100,
			Limiter:     cfg.Limiter,
			Logger:      logger,
		})
		ownPool = true
	}

	location := cfg.Location
	if location == nil {
		location = time.Local
	}

	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = 50 * time.Millisecond // Reasonable default
	}

	maxTasks := cfg.MaxTasks
	if maxTasks <= 0 {
		maxTasks = 10000 // Reasonable default
	}

	clock := cfg.Clock
	if clock == nil {
		clock = loop.Default()
	}

	s := &scheduler{
		pool:         pool,
		ownPool:      ownPool,
		location:     location,
		tickInterval: tickInterval,
		maxTasks:     maxTasks,
		clock:        clock,
		name:         cfg.Name,
		logger:       logger.With(slog.String("component", module), slog.String("scheduler", cfg.Name)),
		metrics:      cfg.Metrics,
		tasks:        make(map[string]*scheduledTask),
	}

	if ownPool {
		// Nobody else can read the results of a pool we own
		s.wg.Add(1)
		go s.drainResults()
	}

	return s
}

func validateTask(id string, task workerpool.Task) error {
	if err := validation.ValidateNotEmpty(module, "id", id); err != nil {
		return err
	}
	if len(id) > maxIDLength {
		return gferrors.NewValidationError(module, "id", len(id), fmt.Sprintf("too long (max %d characters)", maxIDLength))
	}
	return validation.ValidateNotNil(module, "task", task)
}

// add registers st, enforcing unique IDs and the task limit.
func (s *scheduler) add(st *scheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[st.id]; exists {
		return fmt.Errorf("task with ID %q already exists, use a different ID or cancel the existing task first", st.id)
	}

	if len(s.tasks) >= s.maxTasks {
		return fmt.Errorf("cannot schedule task: maximum number of tasks (%d) reached: %w", s.maxTasks, gferrors.ErrCapacityExceeded)
	}

	st.created = s.clock.Now()
	s.tasks[st.id] = st
	if s.metrics != nil {
		s.metrics.TasksScheduled.WithLabelValues(s.name).Inc()
	}
	return nil
}

func (s *scheduler) Schedule(id string, task workerpool.Task, runAt time.Time) error {
	if err := validateTask(id, task); err != nil {
		return err
	}
	if runAt.IsZero() {
		return gferrors.NewValidationError(module, "run_at", runAt, "cannot be zero")
	}

	return s.add(&scheduledTask{
		id:    id,
		task:  task,
		runAt: runAt,
	})
}

func (s *scheduler) ScheduleAfter(id string, task workerpool.Task, delay time.Duration) error {
	return s.Schedule(id, task, s.clock.Now().Add(delay))
}

func (s *scheduler) ScheduleRepeating(id string, task workerpool.Task, interval time.Duration) error {
	if err := validateTask(id, task); err != nil {
		return err
	}
	if interval <= 0 {
		return gferrors.NewValidationError(module, "interval", interval, "must be positive")
	}

	return s.add(&scheduledTask{
		id:       id,
		task:     task,
		runAt:    s.clock.Now(),
		interval: interval,
	})
}

func (s *scheduler) ScheduleCron(id string, cronExpr string, task workerpool.Task) error {
	if err := validateTask(id, task); err != nil {
		return err
	}

	schedule, err := ParseCron(inLocation(cronExpr, s.location))
	if err != nil {
		return err
	}

	return s.add(&scheduledTask{
		id:           id,
		task:         task,
		runAt:        schedule.Next(s.clock.Now().In(s.location)),
		cronExpr:     cronExpr,
		cronSchedule: schedule,
	})
}

func (s *scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; exists {
		delete(s.tasks, id)
		return true
	}
	return false
}

func (s *scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*scheduledTask)
}

func (s *scheduler) List() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, Task{
			ID:       t.id,
			RunAt:    t.runAt,
			Interval: t.interval,
			Cron:     t.cronExpr,
			Created:  t.created,
		})
	}

	// Sort by run time, then ID for stable output
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].RunAt.Equal(tasks[j].RunAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].RunAt.Before(tasks[j].RunAt)
	})

	return tasks
}

func (s *scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running, call Stop() first")
	}

	s.running = true
	s.done = make(chan struct{})

	s.wg.Add(1)
	go s.run(s.done)
	return nil
}

// Stop halts the scheduler. The returned channel closes once the tick loop
// has exited and, if the scheduler owns its pool, the pool has drained.
func (s *scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.done)
	}
	s.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if s.ownPool {
			<-s.pool.Shutdown()
		}
		s.wg.Wait()
	}()

	return stopped
}

func (s *scheduler) run(done <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			// Protect against panics in task processing
			func() {
				defer func() {
					if r := recover(); r != nil {
						s.logger.Error("processing ready tasks panicked", slog.Any("panic", r))
					}
				}()
				s.processReadyTasks()
			}()
		}
	}
}

func (s *scheduler) processReadyTasks() {
	now := s.clock.Now()

	s.mu.Lock()
	if len(s.tasks) == 0 {
		s.mu.Unlock()
		return // Quick exit if no tasks
	}

	readyTasks := make([]*scheduledTask, 0, len(s.tasks))

	for id, task := range s.tasks {
		if !now.Before(task.runAt) {
			readyTasks = append(readyTasks, task)

			// Handle rescheduling
			if task.interval > 0 {
				// Repeating task
				task.runAt = now.Add(task.interval)
			} else if task.cronSchedule != nil {
				// Cron task
				task.runAt = task.cronSchedule.Next(now.In(s.location))
			} else {
				// One-time task
				delete(s.tasks, id)
			}
		}
	}
	s.mu.Unlock()

	// Execute ready tasks
	for _, task := range readyTasks {
		if s.metrics != nil {
			s.metrics.TasksTriggered.WithLabelValues(s.name).Inc()
		}
		if err := s.pool.Submit(task.task); err != nil {
			// Task submission failed, but continue processing other tasks
			s.logger.Warn("failed to submit scheduled task",
				slog.String("task", task.id),
				slog.Any("error", err),
			)
		}
	}
}

// drainResults logs failures from an owned pool until it shuts down.
func (s *scheduler) drainResults() {
	defer s.wg.Done()
	for result := range s.pool.Results() {
		if result.Error != nil {
			s.logger.Warn("scheduled task failed",
				slog.Int("worker", result.WorkerID),
				slog.Duration("duration", result.Duration),
				slog.Any("error", result.Error),
			)
		}
	}
}
