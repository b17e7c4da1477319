package leakybucket

import (
	"log/slog"

	gferrors "github.com/vnykmshr/dripflow/pkg/common/errors"
	"github.com/vnykmshr/dripflow/pkg/scheduling/loop"
)

// guard binds the limiter to current on first use and resets it when a
// different loop shows up later. It returns the anomaly to report, if any.
// Callers hold lb.mu.
func (lb *leakyBucket) guard(current loop.Loop) (Anomaly, bool) {
	if lb.bound == current {
		return Anomaly{}, false
	}

	if lb.bound == nil {
		lb.bound = current
		if lb.clock != current {
			// Settle the ledger on the construction clock, then move
			// lastCheck onto the new time base.
			lb.leak(lb.clock.Now())
			lb.clock = current
			lb.lastCheck = current.Now()
		}
		return Anomaly{}, false
	}

	anomaly := Anomaly{
		Limiter:      lb.name,
		PreviousLoop: lb.bound.ID(),
		CurrentLoop:  current.ID(),
		Discarded:    len(lb.waiters),
		At:           current.Now(),
	}
	lb.reset(current)
	return anomaly, true
}

// reset empties the bucket, releases every waiter with ErrLimiterReset and
// rebinds to current. Callers hold lb.mu.
func (lb *leakyBucket) reset(current loop.Loop) {
	lb.releaseAll(gferrors.ErrLimiterReset)
	lb.level = 0
	lb.clock = current
	lb.bound = current
	lb.lastCheck = current.Now()
	lb.resets++
}

// report emits the anomaly to the logger and the OnAnomaly hook.
// It must be called without lb.mu held.
func (lb *leakyBucket) report(a Anomaly) {
	lb.logger.Warn("rate limiter used from a second loop, state reset",
		slog.String("limiter", a.Limiter),
		slog.String("previous_loop", a.PreviousLoop),
		slog.String("current_loop", a.CurrentLoop),
		slog.Int("discarded", a.Discarded),
		slog.Any("error", a),
	)
	if lb.onAnomaly != nil {
		lb.onAnomaly(a)
	}
}
