package loop

import (
	"time"

	"github.com/google/uuid"
)

// System is a Loop backed by the runtime clock and time.AfterFunc.
// time.Now carries a monotonic reading, so wall clock adjustments never
// produce negative elapsed time between two readings.
type System struct {
	id string
}

var defaultLoop = New()

// New creates a real-time loop with its own identity.
func New() *System {
	return &System{id: uuid.NewString()}
}

// Default returns the process-wide real-time loop used when no loop is
// bound to a context or configured explicitly.
func Default() *System {
	return defaultLoop
}

// ID returns the loop identifier.
func (s *System) ID() string {
	return s.id
}

// Now returns the current time.
func (s *System) Now() time.Time {
	return time.Now()
}

// AfterFunc runs fn in its own goroutine after d.
func (s *System) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
