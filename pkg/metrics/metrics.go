// Package metrics provides Prometheus instrumentation for dripflow components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for dripflow components.
type Registry struct {
	// Rate Limiting Metrics
	RateLimitRequests *prometheus.CounterVec
	RateLimitAllowed  *prometheus.CounterVec
	RateLimitDenied   *prometheus.CounterVec
	RateLimitWaitTime *prometheus.HistogramVec
	RateLimitLevel    *prometheus.GaugeVec
	RateLimitWaiters  *prometheus.GaugeVec
	RateLimitResets   *prometheus.CounterVec

	// Task Scheduling Metrics
	TasksScheduled   *prometheus.CounterVec
	TasksTriggered   *prometheus.CounterVec
	TasksCompleted   *prometheus.CounterVec
	TasksFailed      *prometheus.CounterVec
	WorkerPoolSize   *prometheus.GaugeVec
	WorkerPoolActive *prometheus.GaugeVec
	WorkerPoolQueued *prometheus.GaugeVec
}

// DefaultRegistry is the default metrics registry used by dripflow components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer
// under the default "dripflow" namespace.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithConfig(Config{Registry: reg})
}

// NewRegistryWithConfig creates a metrics registry using the registerer and
// namespace from cfg. Empty fields fall back to DefaultConfig.
// It panics if the collectors cannot be registered; use NewRegistrySafe to
// get an error.
func NewRegistryWithConfig(cfg Config) *Registry {
	r, err := NewRegistrySafe(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

// NewRegistrySafe is NewRegistryWithConfig returning registration failures,
// such as a collector already registered with the same registerer. On
// failure nothing stays registered.
func NewRegistrySafe(cfg Config) (*Registry, error) {
	r := newRegistry(cfg)

	reg := registererFor(cfg)
	registered := make([]prometheus.Collector, 0, len(r.collectors()))
	for _, c := range r.collectors() {
		if err := reg.Register(c); err != nil {
			for _, done := range registered {
				reg.Unregister(done)
			}
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		registered = append(registered, c)
	}
	return r, nil
}

// registererFor resolves the registerer cfg points at, with its constant
// labels applied.
func registererFor(cfg Config) prometheus.Registerer {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(cfg.Labels) > 0 {
		reg = prometheus.WrapRegistererWith(cfg.Labels, reg)
	}
	return reg
}

// newRegistry builds the collectors without registering them.
func newRegistry(cfg Config) *Registry {
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	factory := promauto.With(nil)
	limiterLabels := []string{"limiter_type", "limiter_name"}

	return &Registry{
		// Rate Limiting Metrics
		RateLimitRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "ratelimit",
				Name:      "requests_total",
				Help:      "Total capacity requested from rate limiters",
			},
			limiterLabels,
		),

		RateLimitAllowed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "ratelimit",
				Name:      "allowed_total",
				Help:      "Total capacity granted by rate limiters",
			},
			limiterLabels,
		),

		RateLimitDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "ratelimit",
				Name:      "denied_total",
				Help:      "Total capacity refused, cancelled or rejected as invalid",
			},
			limiterLabels,
		),

		RateLimitWaitTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: "ratelimit",
				Name:      "wait_duration_seconds",
				Help:      "Time spent waiting for rate limit approval",
				Buckets:   prometheus.DefBuckets,
			},
			limiterLabels,
		),

		RateLimitLevel: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "ratelimit",
				Name:      "level",
				Help:      "Capacity currently consumed in the bucket",
			},
			limiterLabels,
		),

		RateLimitWaiters: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "ratelimit",
				Name:      "waiters",
				Help:      "Number of callers blocked waiting for capacity",
			},
			limiterLabels,
		),

		RateLimitResets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "ratelimit",
				Name:      "resets_total",
				Help:      "Total number of limiter resets after cross-loop use",
			},
			limiterLabels,
		),

		// Task Scheduling Metrics
		TasksScheduled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "scheduler",
				Name:      "tasks_scheduled_total",
				Help:      "Total number of tasks scheduled",
			},
			[]string{"scheduler_name"},
		),

		TasksTriggered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "scheduler",
				Name:      "tasks_triggered_total",
				Help:      "Total number of scheduled task runs handed to the worker pool",
			},
			[]string{"scheduler_name"},
		),

		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "workerpool",
				Name:      "tasks_completed_total",
				Help:      "Total number of tasks completed successfully",
			},
			[]string{"pool_name"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "workerpool",
				Name:      "tasks_failed_total",
				Help:      "Total number of tasks that failed",
			},
			[]string{"pool_name"},
		),

		WorkerPoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "workerpool",
				Name:      "size",
				Help:      "Current worker pool size",
			},
			[]string{"pool_name"},
		),

		WorkerPoolActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "workerpool",
				Name:      "active_workers",
				Help:      "Number of active workers",
			},
			[]string{"pool_name"},
		),

		WorkerPoolQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "workerpool",
				Name:      "queued_tasks",
				Help:      "Number of queued tasks",
			},
			[]string{"pool_name"},
		),
	}
}

func (r *Registry) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		r.RateLimitRequests,
		r.RateLimitAllowed,
		r.RateLimitDenied,
		r.RateLimitWaitTime,
		r.RateLimitLevel,
		r.RateLimitWaiters,
		r.RateLimitResets,
		r.TasksScheduled,
		r.TasksTriggered,
		r.TasksCompleted,
		r.TasksFailed,
		r.WorkerPoolSize,
		r.WorkerPoolActive,
		r.WorkerPoolQueued,
	}
}
