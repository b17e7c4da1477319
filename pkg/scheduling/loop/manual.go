package loop

import (
	"container/heap"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manual is a Loop with a virtual clock that only moves when told to.
// Timers fire synchronously inside Advance and Set, in deadline order
// (FIFO for equal deadlines), with the clock set to each deadline first.
type Manual struct {
	id string

	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers timerHeap
}

// NewManual creates a manual loop starting at start. A zero start uses the
// current time.
func NewManual(start time.Time) *Manual {
	if start.IsZero() {
		start = time.Now()
	}
	return &Manual{id: uuid.NewString(), now: start}
}

// ID returns the loop identifier.
func (m *Manual) ID() string {
	return m.id
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc registers fn to run when the clock reaches Now()+d. A
// non-positive d fires on the next Advance, including Advance(0).
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{
		loop: m,
		when: m.now.Add(d),
		seq:  m.seq,
		fn:   fn,
	}
	heap.Push(&m.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer that falls due.
func (m *Manual) Advance(d time.Duration) {
	m.Set(m.Now().Add(d))
}

// Set moves the clock to t, firing every timer that falls due. The clock
// never moves backwards; an earlier t only fires already-due timers.
func (m *Manual) Set(t time.Time) {
	for {
		m.mu.Lock()
		if len(m.timers) == 0 || m.timers[0].when.After(t) {
			if t.After(m.now) {
				m.now = t
			}
			m.mu.Unlock()
			return
		}
		next := heap.Pop(&m.timers).(*manualTimer)
		if next.when.After(m.now) {
			m.now = next.when
		}
		m.mu.Unlock()

		// Callbacks may register new timers, so run them unlocked.
		next.fn()
	}
}

// Pending returns the number of timers that have not fired or been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// NextDeadline returns the deadline of the earliest pending timer.
func (m *Manual) NextDeadline() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.timers) == 0 {
		return time.Time{}, false
	}
	return m.timers[0].when, true
}

type manualTimer struct {
	loop  *Manual
	when  time.Time
	seq   uint64
	fn    func()
	index int
}

func (t *manualTimer) Stop() bool {
	t.loop.mu.Lock()
	defer t.loop.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&t.loop.timers, t.index)
	return true
}

type timerHeap []*manualTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*manualTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
