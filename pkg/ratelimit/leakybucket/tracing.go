package leakybucket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vnykmshr/dripflow/pkg/ratelimit/leakybucket"

// TracedLimiter records an OpenTelemetry span around every acquisition.
type TracedLimiter struct {
	Limiter
	name   string
	tracer trace.Tracer
}

// NewTraced wraps l so that AcquireN and Do emit "leakybucket.acquire"
// spans. A nil tp falls back to the global provider.
func NewTraced(l Limiter, tp trace.TracerProvider, name string) *TracedLimiter {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TracedLimiter{
		Limiter: l,
		name:    name,
		tracer:  tp.Tracer(tracerName),
	}
}

// Acquire is AcquireN with an amount of 1.
func (tl *TracedLimiter) Acquire(ctx context.Context) error {
	return tl.AcquireN(ctx, 1)
}

// AcquireN acquires amount units inside a span.
func (tl *TracedLimiter) AcquireN(ctx context.Context, amount float64) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := tl.tracer.Start(ctx, "leakybucket.acquire",
		trace.WithAttributes(
			attribute.String("ratelimit.limiter", tl.name),
			attribute.Float64("ratelimit.amount", amount),
			attribute.Float64("ratelimit.max_rate", tl.MaxRate()),
		),
	)
	defer span.End()

	start := time.Now()
	err := tl.Limiter.AcquireN(ctx, amount)
	span.SetAttributes(attribute.Int64("ratelimit.waited_ms", time.Since(start).Milliseconds()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// Do acquires through the traced path and then runs fn.
func (tl *TracedLimiter) Do(ctx context.Context, amount float64, fn func(context.Context) error) error {
	if fn == nil {
		return tl.Limiter.Do(ctx, amount, nil)
	}
	if err := tl.AcquireN(ctx, amount); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx)
}
