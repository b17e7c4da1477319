package loop_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/dripflow/pkg/scheduling/loop"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualFiresInDeadlineOrder(t *testing.T) {
	t.Parallel()

	m := loop.NewManual(epoch)
	var order []string
	var firedAt []time.Duration

	record := func(name string) func() {
		return func() {
			order = append(order, name)
			firedAt = append(firedAt, m.Now().Sub(epoch))
		}
	}

	m.AfterFunc(3*time.Second, record("c"))
	m.AfterFunc(1*time.Second, record("a"))
	m.AfterFunc(2*time.Second, record("b1"))
	m.AfterFunc(2*time.Second, record("b2"))
	require.Equal(t, 4, m.Pending())

	m.Advance(2500 * time.Millisecond)
	assert.Equal(t, []string{"a", "b1", "b2"}, order)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 2 * time.Second}, firedAt)
	assert.Equal(t, 2500*time.Millisecond, m.Now().Sub(epoch))

	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, order)
	assert.Zero(t, m.Pending())
}

func TestManualStop(t *testing.T) {
	t.Parallel()

	m := loop.NewManual(epoch)
	fired := false
	timer := m.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	assert.Zero(t, m.Pending())

	m.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestManualStopAfterFire(t *testing.T) {
	t.Parallel()

	m := loop.NewManual(epoch)
	timer := m.AfterFunc(time.Second, func() {})
	m.Advance(time.Second)
	assert.False(t, timer.Stop())
}

func TestManualCallbackCanRearm(t *testing.T) {
	t.Parallel()

	m := loop.NewManual(epoch)
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		if ticks < 3 {
			m.AfterFunc(time.Second, tick)
		}
	}
	m.AfterFunc(time.Second, tick)

	m.Advance(10 * time.Second)
	assert.Equal(t, 3, ticks)
	assert.Equal(t, 10*time.Second, m.Now().Sub(epoch))
}

func TestManualZeroDelay(t *testing.T) {
	t.Parallel()

	m := loop.NewManual(epoch)
	fired := false
	m.AfterFunc(-time.Second, func() { fired = true })

	deadline, ok := m.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, epoch, deadline)

	m.Advance(0)
	assert.True(t, fired)
}

func TestManualSetNeverRewinds(t *testing.T) {
	t.Parallel()

	m := loop.NewManual(epoch)
	m.Set(epoch.Add(time.Minute))
	m.Set(epoch)
	assert.Equal(t, epoch.Add(time.Minute), m.Now())
}
