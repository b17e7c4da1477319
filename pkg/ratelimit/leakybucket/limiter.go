package leakybucket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gferrors "github.com/vnykmshr/dripflow/pkg/common/errors"
	"github.com/vnykmshr/dripflow/pkg/common/validation"
	"github.com/vnykmshr/dripflow/pkg/scheduling/loop"
)

const (
	module      = "leakybucket"
	limiterType = "leaky_bucket"
)

// DefaultTimePeriod is used when Config.TimePeriod is zero.
const DefaultTimePeriod = time.Minute

// Limiter admits work at an average of MaxRate units per TimePeriod while
// allowing bursts of up to MaxRate units. Capacity is never returned early:
// it only drains ("leaks") with time.
type Limiter interface {
	// Acquire is AcquireN with an amount of 1.
	Acquire(ctx context.Context) error

	// AcquireN blocks until amount units of capacity have been granted to the
	// caller. It returns an InvalidArgument error if amount is not in
	// (0, MaxRate], the context's error if ctx ends first, or
	// errors.ErrLimiterReset if the limiter reset itself while the caller
	// was queued.
	AcquireN(ctx context.Context, amount float64) error

	// HasCapacity reports whether amount units could be acquired right now
	// without blocking. It never queues, but it does reconcile the bucket
	// level against elapsed time, so it is not a pure read.
	HasCapacity(amount float64) (bool, error)

	// Do acquires amount units and then runs fn. There is no release step.
	Do(ctx context.Context, amount float64, fn func(context.Context) error) error

	// MaxRate returns the capacity ceiling, which is also the largest burst.
	MaxRate() float64

	// TimePeriod returns the period over which MaxRate units leak away.
	TimePeriod() time.Duration

	// LeakRate returns the units restored per second.
	LeakRate() float64

	// Level returns the capacity currently consumed, after leaking.
	Level() float64

	// Waiters returns the number of callers blocked in AcquireN.
	Waiters() int

	// Resets returns how many times cross-loop use forced a reset.
	Resets() uint64
}

// Config holds configuration options for creating a new Limiter.
type Config struct {
	// MaxRate is the bucket capacity and the maximum burst size. Must be > 0.
	MaxRate float64

	// TimePeriod is the duration over which MaxRate units leak away.
	// Zero means DefaultTimePeriod; negative values are rejected.
	TimePeriod time.Duration

	// Name identifies the limiter in logs and metrics.
	Name string

	// Loop supplies the clock and timers when a caller's context does not
	// carry a loop. If nil, loop.Default() is used.
	Loop loop.Loop

	// Logger receives anomaly warnings. If nil, slog.Default() is used.
	Logger *slog.Logger

	// OnAnomaly, if set, is called after every cross-loop reset. It runs
	// without the limiter's lock held.
	OnAnomaly func(Anomaly)
}

// Anomaly describes a non-fatal misuse the limiter recovered from: a call
// arrived from a loop other than the one the limiter was bound to.
type Anomaly struct {
	Limiter      string
	PreviousLoop string
	CurrentLoop  string
	Discarded    int
	At           time.Time
}

func (a Anomaly) Error() string {
	return fmt.Sprintf("limiter %q used from loop %s while bound to loop %s: reset, %d waiters released",
		a.Limiter, a.CurrentLoop, a.PreviousLoop, a.Discarded)
}

// Unwrap makes an Anomaly match errors.ErrAnomalyDetected.
func (a Anomaly) Unwrap() error {
	return gferrors.ErrAnomalyDetected
}

// leakyBucket implements the Limiter interface.
type leakyBucket struct {
	maxRate     float64
	timePeriod  time.Duration
	leakRate    float64
	name        string
	defaultLoop loop.Loop
	logger      *slog.Logger
	onAnomaly   func(Anomaly)

	mu        sync.Mutex
	clock     loop.Loop // stamps lastCheck and arms the timer
	bound     loop.Loop // nil until the first AcquireN
	level     float64
	lastCheck time.Time

	waiters  waiterHeap
	seq      uint64
	timer    loop.Timer
	timerGen uint64
	wakeAt   time.Time

	resets uint64
}

// New creates a limiter allowing maxRate units per timePeriod.
// It panics if either argument is not positive; use NewSafe to get an error.
func New(maxRate float64, timePeriod time.Duration) Limiter {
	l, err := NewSafe(maxRate, timePeriod)
	if err != nil {
		panic(err)
	}
	return l
}

// NewSafe creates a limiter with validation that returns an error instead of panicking.
// The error matches errors.ErrInvalidArgument.
func NewSafe(maxRate float64, timePeriod time.Duration) (Limiter, error) {
	if err := validation.ValidatePositiveDuration(module, "time_period", timePeriod); err != nil {
		return nil, err
	}
	return NewWithConfigSafe(Config{
		MaxRate:    maxRate,
		TimePeriod: timePeriod,
	})
}

// NewWithConfig creates a limiter from config, panicking on invalid values.
func NewWithConfig(config Config) Limiter {
	l, err := NewWithConfigSafe(config)
	if err != nil {
		panic(err)
	}
	return l
}

// NewWithConfigSafe creates a limiter from config with validation that
// returns an error instead of panicking.
func NewWithConfigSafe(config Config) (Limiter, error) {
	if err := validation.ValidatePositiveFloat(module, "max_rate", config.MaxRate); err != nil {
		return nil, err
	}
	if config.TimePeriod == 0 {
		config.TimePeriod = DefaultTimePeriod
	}
	if err := validation.ValidatePositiveDuration(module, "time_period", config.TimePeriod); err != nil {
		return nil, err
	}
	if config.Loop == nil {
		config.Loop = loop.Default()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &leakyBucket{
		maxRate:     config.MaxRate,
		timePeriod:  config.TimePeriod,
		leakRate:    config.MaxRate / config.TimePeriod.Seconds(),
		name:        config.Name,
		defaultLoop: config.Loop,
		logger:      config.Logger,
		onAnomaly:   config.OnAnomaly,
		clock:       config.Loop,
		lastCheck:   config.Loop.Now(),
	}, nil
}

// String reports configuration and current state for debugging.
func (lb *leakyBucket) String() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	now := lb.clock.Now()
	lb.leak(now)
	state := fmt.Sprintf("level: %f, waiters: %d", lb.level, len(lb.waiters))
	if lb.timer != nil {
		if d := lb.wakeAt.Sub(now); d > 0 {
			state += fmt.Sprintf(", waking in %dµs", d.Microseconds())
		}
	}
	return fmt.Sprintf("leakybucket.Limiter(max_rate=%g, time_period=%v) [%s]", lb.maxRate, lb.timePeriod, state)
}
