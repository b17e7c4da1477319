package leakybucket

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vnykmshr/dripflow/pkg/metrics"
	"github.com/vnykmshr/dripflow/pkg/scheduling/loop"
)

// BenchmarkAcquire measures the uncontended fast path
func BenchmarkAcquire(b *testing.B) {
	limiter := New(1e12, time.Second) // High rate to avoid blocking
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = limiter.Acquire(ctx)
	}
}

// BenchmarkAcquireParallel measures the fast path under contention
func BenchmarkAcquireParallel(b *testing.B) {
	limiter := New(1e12, time.Second)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = limiter.Acquire(ctx)
		}
	})
}

// BenchmarkHasCapacity measures the non-blocking check
func BenchmarkHasCapacity(b *testing.B) {
	limiter := New(1000, time.Second)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = limiter.HasCapacity(1)
		}
	})
}

// BenchmarkLevel measures state inspection
func BenchmarkLevel(b *testing.B) {
	limiter := New(1000, time.Second)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = limiter.Level()
	}
}

// BenchmarkQueueDrain measures queueing and waking waiters on a virtual clock
func BenchmarkQueueDrain(b *testing.B) {
	const waiters = 100

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		clock := loop.NewManual(time.Time{})
		lb := NewWithConfig(Config{MaxRate: 1, TimePeriod: time.Millisecond, Loop: clock}).(*leakyBucket)
		_ = lb.Acquire(context.Background())

		lb.mu.Lock()
		lb.leak(clock.Now())
		for j := 0; j < waiters; j++ {
			lb.enqueue(1)
		}
		lb.mu.Unlock()

		clock.Advance(waiters * time.Millisecond)
	}
}

// BenchmarkMetricsOverhead compares the instrumented path with the bare one
func BenchmarkMetricsOverhead(b *testing.B) {
	ctx := context.Background()

	b.Run("Bare", func(b *testing.B) {
		limiter := New(1e12, time.Second)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = limiter.Acquire(ctx)
		}
	})

	b.Run("Metrics", func(b *testing.B) {
		limiter := NewWithConfigAndMetrics(Config{MaxRate: 1e12, TimePeriod: time.Second}, "bench",
			metrics.Config{Enabled: true, Registry: prometheus.NewRegistry()})
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = limiter.Acquire(ctx)
		}
	})
}
