package loop

import (
	"context"
	"time"
)

// Loop is a scheduler instance that drives suspended work. It supplies a
// monotonic clock and one-shot timers. Two Loop values are the same
// instance only if they compare equal, so implementations must be
// comparable; pointer receivers are the norm.
type Loop interface {
	// ID returns a stable identifier for logs. It is not used for identity.
	ID() string

	// Now returns the loop's current monotonic time.
	Now() time.Time

	// AfterFunc arranges for fn to run once d has elapsed on this loop's clock.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a handle to a pending AfterFunc callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer, false if it already fired or was stopped.
	Stop() bool
}

type ctxKey struct{}

// WithLoop returns a copy of ctx carrying l as the current loop.
func WithLoop(ctx context.Context, l Loop) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the loop carried by ctx, if any.
func FromContext(ctx context.Context) (Loop, bool) {
	if ctx == nil {
		return nil, false
	}
	l, ok := ctx.Value(ctxKey{}).(Loop)
	return l, ok && l != nil
}
