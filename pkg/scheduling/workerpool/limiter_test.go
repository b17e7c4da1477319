package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/dripflow/internal/testutil"
	gferrors "github.com/vnykmshr/dripflow/pkg/common/errors"
	"github.com/vnykmshr/dripflow/pkg/ratelimit/leakybucket"
	"github.com/vnykmshr/dripflow/pkg/scheduling/loop"
)

// costlyTask charges its own cost against the pool's limiter.
type costlyTask struct {
	cost     float64
	executed *int32
}

func (c *costlyTask) Execute(ctx context.Context) error {
	atomic.AddInt32(c.executed, 1)
	return nil
}

func (c *costlyTask) Cost() float64 {
	return c.cost
}

func newLimited(t *testing.T, maxRate float64, period time.Duration) (leakybucket.Limiter, *loop.Manual) {
	t.Helper()
	clock := loop.NewManual(time.Time{})
	return leakybucket.NewWithConfig(leakybucket.Config{
		MaxRate:    maxRate,
		TimePeriod: period,
		Name:       t.Name(),
		Loop:       clock,
	}), clock
}

func receiveResult(t *testing.T, pool Pool) Result {
	t.Helper()
	select {
	case r := <-pool.Results():
		return r
	case <-time.After(testutil.TestTimeout):
		t.Fatal("timeout waiting for result")
		return Result{}
	}
}

func TestLimiterGatesTasks(t *testing.T) {
	limiter, clock := newLimited(t, 2, 2*time.Second) // one unit per second
	pool := NewWithConfig(Config{
		WorkerCount:     4,
		QueueSize:       4,
		BufferedResults: true,
		Limiter:         limiter,
	})
	defer func() { <-pool.Shutdown() }()

	var executed int32
	for i := 0; i < 4; i++ {
		testutil.AssertNoError(t, pool.Submit(&job{ran: &executed}))
	}

	// The burst runs at once, the rest wait for the bucket to leak
	receiveResult(t, pool)
	receiveResult(t, pool)
	testutil.AssertEventually(t, func() bool { return limiter.Waiters() == 2 })
	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(2))

	clock.Advance(time.Second)
	testutil.AssertNoError(t, receiveResult(t, pool).Error)
	testutil.AssertEqual(t, limiter.Waiters(), 1)

	clock.Advance(time.Second)
	testutil.AssertNoError(t, receiveResult(t, pool).Error)
	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(4))
}

func TestCosterTask(t *testing.T) {
	limiter, _ := newLimited(t, 4, time.Minute)
	pool := NewWithConfig(Config{WorkerCount: 1, QueueSize: 1, Limiter: limiter})
	defer func() { <-pool.Shutdown() }()

	var executed int32
	testutil.AssertNoError(t, pool.Submit(&costlyTask{cost: 3, executed: &executed}))
	testutil.AssertNoError(t, receiveResult(t, pool).Error)

	testutil.AssertEqual(t, limiter.Level(), 3.0)
}

func TestDefaultTaskCost(t *testing.T) {
	limiter, _ := newLimited(t, 4, time.Minute)
	pool := NewWithConfig(Config{WorkerCount: 1, Limiter: limiter, TaskCost: 0.5})
	defer func() { <-pool.Shutdown() }()

	testutil.AssertNoError(t, pool.Submit(&job{}))
	receiveResult(t, pool)
	testutil.AssertEqual(t, limiter.Level(), 0.5)
}

func TestRateLimitFailureBecomesResult(t *testing.T) {
	limiter, _ := newLimited(t, 1, time.Hour)
	testutil.AssertNoError(t, limiter.Acquire(context.Background()))

	pool := NewWithConfig(Config{WorkerCount: 1, Limiter: limiter})
	defer func() { <-pool.Shutdown() }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var executed int32
	testutil.AssertNoError(t, pool.SubmitWithContext(ctx, &job{ran: &executed}))

	r := receiveResult(t, pool)
	testutil.AssertErrorIs(t, r.Error, context.DeadlineExceeded)
	testutil.AssertErrorIs(t, r.Error, gferrors.ErrRateLimited)
	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(0))
	testutil.AssertEqual(t, limiter.Waiters(), 0)
}

func TestTaskCostExceedsLimiter(t *testing.T) {
	limiter, _ := newLimited(t, 2, time.Second)

	_, err := NewWithConfigSafe(Config{WorkerCount: 1, Limiter: limiter, TaskCost: 5})
	testutil.AssertErrorIs(t, err, gferrors.ErrInvalidArgument)

	var verr *gferrors.ValidationError
	if !errors.As(err, &verr) || verr.Field != "task_cost" {
		t.Errorf("expected a task_cost validation error, got %v", err)
	}
}

func TestShutdownWithTimeoutCancelsWaiting(t *testing.T) {
	limiter, _ := newLimited(t, 1, time.Hour)
	testutil.AssertNoError(t, limiter.Acquire(context.Background()))

	pool := NewWithConfig(Config{WorkerCount: 1, Limiter: limiter})
	testutil.AssertNoError(t, pool.Submit(&job{}))
	testutil.AssertEventually(t, func() bool { return limiter.Waiters() == 1 })

	select {
	case <-pool.ShutdownWithTimeout(20 * time.Millisecond):
	case <-time.After(testutil.TestTimeout):
		t.Fatal("shutdown did not complete")
	}

	testutil.AssertEqual(t, limiter.Waiters(), 0)
	testutil.AssertEqual(t, pool.TotalCompleted(), int64(1))
}
