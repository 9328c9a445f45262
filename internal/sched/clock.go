package sched

import "time"

// Clock supplies the engine's notion of current time in logical milliseconds.
//
// Implementations must be monotonic: a clock that can move backwards (wall
// time under NTP adjustment) would reorder deadlines mid-session. Tests use
// a manually advanced clock (internal/testutil).
type Clock interface {
	Now() Millis
}

type monotonicClock struct {
	start time.Time
}

// NewClock returns a clock backed by the runtime monotonic reading,
// measuring milliseconds since construction.
func NewClock() Clock {
	return &monotonicClock{start: time.Now()}
}

func (c *monotonicClock) Now() Millis {
	return Millis(time.Since(c.start) / time.Millisecond)
}
