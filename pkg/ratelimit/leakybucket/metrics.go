package leakybucket

import (
	"context"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vnykmshr/dripflow/pkg/metrics"
)

// MetricsLimiter wraps a Limiter with Prometheus metrics collection.
// It is safe to enable and disable metrics while the limiter is in use.
type MetricsLimiter struct {
	limiter Limiter
	name    string
	metrics *metrics.Switch
}

// NewWithMetrics creates a new leaky bucket limiter with metrics enabled.
func NewWithMetrics(maxRate float64, timePeriod time.Duration, name string) Limiter {
	// Use a separate registry for each metrics-enabled component to avoid conflicts
	registry := prometheus.NewRegistry()
	config := metrics.Config{
		Enabled:  true,
		Registry: registry,
	}

	return NewWithConfigAndMetrics(Config{
		MaxRate:    maxRate,
		TimePeriod: timePeriod,
		Name:       name,
	}, name, config)
}

// NewWithConfigAndMetrics creates a new leaky bucket limiter with custom config and metrics.
// Resets are counted through Config.OnAnomaly; a hook already present in
// config still runs afterwards.
func NewWithConfigAndMetrics(config Config, name string, metricsConfig metrics.Config) Limiter {
	if !metricsConfig.Enabled {
		return NewWithConfig(config)
	}

	ml := &MetricsLimiter{
		name:    name,
		metrics: metrics.NewSwitch(metricsConfig),
	}

	userHook := config.OnAnomaly
	config.OnAnomaly = func(a Anomaly) {
		if r := ml.metrics.Active(); r != nil {
			r.RateLimitResets.WithLabelValues(limiterType, ml.name).Inc()
		}
		if userHook != nil {
			userHook(a)
		}
	}
	if config.Name == "" {
		config.Name = name
	}

	ml.limiter = NewWithConfig(config)
	return ml
}

// Acquire blocks until one unit is granted.
func (ml *MetricsLimiter) Acquire(ctx context.Context) error {
	return ml.AcquireN(ctx, 1)
}

// AcquireN blocks until amount units are granted, recording the outcome.
func (ml *MetricsLimiter) AcquireN(ctx context.Context, amount float64) error {
	start := time.Now()
	units := countable(amount)

	if r := ml.metrics.Active(); r != nil {
		r.RateLimitRequests.WithLabelValues(limiterType, ml.name).Add(units)
	}

	err := ml.limiter.AcquireN(ctx, amount)

	if r := ml.metrics.Active(); r != nil {
		duration := time.Since(start)
		r.RateLimitWaitTime.WithLabelValues(limiterType, ml.name).Observe(duration.Seconds())

		if err == nil {
			r.RateLimitAllowed.WithLabelValues(limiterType, ml.name).Add(units)
		} else {
			r.RateLimitDenied.WithLabelValues(limiterType, ml.name).Add(units)
		}

		ml.observeState(r)
	}

	return err
}

// HasCapacity reports whether amount units fit right now.
func (ml *MetricsLimiter) HasCapacity(amount float64) (bool, error) {
	ok, err := ml.limiter.HasCapacity(amount)
	if r := ml.metrics.Active(); r != nil {
		ml.observeState(r)
	}
	return ok, err
}

// Do acquires amount units through the instrumented path and runs fn.
func (ml *MetricsLimiter) Do(ctx context.Context, amount float64, fn func(context.Context) error) error {
	if fn == nil {
		return ml.limiter.Do(ctx, amount, nil)
	}
	if err := ml.AcquireN(ctx, amount); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx)
}

// MaxRate returns the capacity ceiling.
func (ml *MetricsLimiter) MaxRate() float64 {
	return ml.limiter.MaxRate()
}

// TimePeriod returns the leak period.
func (ml *MetricsLimiter) TimePeriod() time.Duration {
	return ml.limiter.TimePeriod()
}

// LeakRate returns units restored per second.
func (ml *MetricsLimiter) LeakRate() float64 {
	return ml.limiter.LeakRate()
}

// Level returns the current fill level and publishes it.
func (ml *MetricsLimiter) Level() float64 {
	level := ml.limiter.Level()

	if r := ml.metrics.Active(); r != nil {
		r.RateLimitLevel.WithLabelValues(limiterType, ml.name).Set(level)
	}

	return level
}

// Waiters returns the number of blocked callers.
func (ml *MetricsLimiter) Waiters() int {
	return ml.limiter.Waiters()
}

// Resets returns the number of cross-loop resets.
func (ml *MetricsLimiter) Resets() uint64 {
	return ml.limiter.Resets()
}

// EnableMetrics enables metrics collection. Passing the registerer already
// in use, or none, keeps the existing collectors; a different registerer
// gets a fresh set, and a registration failure is returned.
func (ml *MetricsLimiter) EnableMetrics(config metrics.Config) error {
	return ml.metrics.Enable(config)
}

// DisableMetrics disables metrics collection.
func (ml *MetricsLimiter) DisableMetrics() {
	ml.metrics.Disable()
}

// MetricsEnabled returns true if metrics are currently enabled.
func (ml *MetricsLimiter) MetricsEnabled() bool {
	return ml.metrics.Enabled()
}

func (ml *MetricsLimiter) observeState(r *metrics.Registry) {
	r.RateLimitLevel.WithLabelValues(limiterType, ml.name).Set(ml.limiter.Level())
	r.RateLimitWaiters.WithLabelValues(limiterType, ml.name).Set(float64(ml.limiter.Waiters()))
}

// countable maps an amount to a value a Prometheus counter accepts.
// Invalid amounts are rejected by the limiter and count as zero units.
func countable(amount float64) float64 {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	return amount
}

var _ metrics.Instrumentable = (*MetricsLimiter)(nil)
