package leakybucket

import (
	"container/heap"
	"time"
)

// waiter is a blocked AcquireN call. ready is closed exactly once, after
// err has been set: nil when capacity was granted on the waiter's behalf,
// ErrLimiterReset when the waiter was discarded.
type waiter struct {
	amount  float64
	readyAt time.Time
	seq     uint64
	ready   chan struct{}
	err     error
	index   int
}

// waiterHeap orders waiters by projected ready time, then by arrival.
type waiterHeap []*waiter

func (h waiterHeap) Len() int { return len(h) }

func (h waiterHeap) Less(i, j int) bool {
	if h[i].readyAt.Equal(h[j].readyAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].readyAt.Before(h[j].readyAt)
}

func (h waiterHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *waiterHeap) Push(x any) {
	w := x.(*waiter)
	w.index = len(*h)
	*h = append(*h, w)
}

func (h *waiterHeap) Pop() any {
	old := *h
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*h = old[:n-1]
	return w
}

// enqueue queues a waiter for amount. The bucket must have just leaked so
// the projection starts from the current time. Callers hold lb.mu.
func (lb *leakyBucket) enqueue(amount float64) *waiter {
	lb.seq++
	w := &waiter{
		amount:  amount,
		readyAt: lb.projectedReadyTime(amount),
		seq:     lb.seq,
		ready:   make(chan struct{}),
	}
	heap.Push(&lb.waiters, w)

	// Only a new head moves the wake time.
	if lb.waiters[0] == w || lb.timer == nil {
		lb.arm()
	}
	return w
}

// arm replaces the single wake timer with one set for the head's freshly
// projected ready time, or leaves none if nobody is waiting.
// Callers hold lb.mu.
func (lb *leakyBucket) arm() {
	lb.disarm()
	if len(lb.waiters) == 0 {
		return
	}

	now := lb.clock.Now()
	at := lb.projectedReadyTime(lb.waiters[0].amount)
	delay := at.Sub(now)
	if delay < time.Nanosecond {
		delay = time.Nanosecond
	}

	lb.timerGen++
	gen := lb.timerGen
	lb.wakeAt = now.Add(delay)
	lb.timer = lb.clock.AfterFunc(delay, func() { lb.wake(gen) })
}

// disarm stops the wake timer. Callers hold lb.mu.
func (lb *leakyBucket) disarm() {
	if lb.timer != nil {
		lb.timer.Stop()
		lb.timer = nil
	}
}

// wake grants capacity to as many waiters as now fit, in heap order, and
// rearms for the first one that does not. A timer that was replaced or
// stopped after it started firing is ignored.
func (lb *leakyBucket) wake(gen uint64) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.timer == nil || gen != lb.timerGen {
		return
	}
	lb.timer = nil

	lb.leak(lb.clock.Now())
	for len(lb.waiters) > 0 {
		head := lb.waiters[0]
		if !lb.fits(head.amount) {
			break
		}
		heap.Pop(&lb.waiters)
		lb.consume(head.amount)
		close(head.ready)
	}
	lb.arm()
}

// abandon removes a waiter whose context ended. If the waiter was granted
// or discarded in the meantime that outcome wins, since the capacity is
// already spent.
func (lb *leakyBucket) abandon(w *waiter, cause error) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	select {
	case <-w.ready:
		return w.err
	default:
	}

	wasHead := w.index == 0
	heap.Remove(&lb.waiters, w.index)
	if wasHead {
		lb.leak(lb.clock.Now())
		lb.arm()
	}
	return cause
}

// releaseAll discards every waiter with err and stops the timer.
// Callers hold lb.mu.
func (lb *leakyBucket) releaseAll(err error) int {
	lb.disarm()
	n := len(lb.waiters)
	for _, w := range lb.waiters {
		w.index = -1
		w.err = err
		close(w.ready)
	}
	lb.waiters = nil
	return n
}
