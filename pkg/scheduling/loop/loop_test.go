package loop_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/dripflow/pkg/scheduling/loop"
)

func TestContextBinding(t *testing.T) {
	t.Parallel()

	_, ok := loop.FromContext(context.Background())
	assert.False(t, ok, "plain context carries no loop")

	m := loop.NewManual(time.Time{})
	ctx := loop.WithLoop(context.Background(), m)

	got, ok := loop.FromContext(ctx)
	require.True(t, ok)
	assert.True(t, got == loop.Loop(m), "loop identity must survive the context round trip")

	other := loop.NewManual(time.Time{})
	inner := loop.WithLoop(ctx, other)
	got, _ = loop.FromContext(inner)
	assert.True(t, got == loop.Loop(other), "innermost loop wins")
}

func TestSystemIdentity(t *testing.T) {
	t.Parallel()

	a, b := loop.New(), loop.New()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.False(t, loop.Loop(a) == loop.Loop(b))
	assert.True(t, loop.Loop(loop.Default()) == loop.Loop(loop.Default()))
}

func TestSystemAfterFunc(t *testing.T) {
	t.Parallel()

	s := loop.New()
	fired := make(chan struct{})
	s.AfterFunc(5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	var calls atomic.Int32
	timer := s.AfterFunc(time.Hour, func() { calls.Add(1) })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	assert.Zero(t, calls.Load())
}

func TestSystemNowIsMonotonic(t *testing.T) {
	t.Parallel()

	s := loop.New()
	prev := s.Now()
	for i := 0; i < 1000; i++ {
		now := s.Now()
		require.False(t, now.Before(prev))
		prev = now
	}
}
