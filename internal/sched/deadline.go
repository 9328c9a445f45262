package sched

// Deadline is the time-slice handle a host passes into deferred callbacks.
// The work loop checks it between units of work (one fiber), never mid-fiber.
type Deadline interface {
	// TimeRemaining returns how much of the slice is left.
	TimeRemaining() Millis
	// DidTimeout reports that the host gave up waiting for idle time and the
	// callback must run work regardless of the slice budget.
	DidTimeout() bool
}

// FrameDeadline is a fixed-budget Deadline measured against a clock. Hosts
// without a richer idle-callback primitive wrap each slice in one of these.
type FrameDeadline struct {
	clock    Clock
	cutoff   Millis
	timedOut bool
}

// NewFrameDeadline returns a deadline expiring budget milliseconds from now.
func NewFrameDeadline(clock Clock, budget Millis) *FrameDeadline {
	return &FrameDeadline{clock: clock, cutoff: clock.Now() + budget}
}

// NewTimedOutDeadline returns a deadline that reports timeout: all pending
// work should be flushed without yielding.
func NewTimedOutDeadline() *FrameDeadline {
	return &FrameDeadline{timedOut: true}
}

func (d *FrameDeadline) TimeRemaining() Millis {
	if d.timedOut {
		return 0
	}
	if rem := d.cutoff - d.clock.Now(); rem > 0 {
		return rem
	}
	return 0
}

func (d *FrameDeadline) DidTimeout() bool { return d.timedOut }
