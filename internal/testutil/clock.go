// Package testutil provides deterministic test doubles for the engine's
// time sources.
package testutil

import (
	"sync"

	"github.com/loomui/loom/internal/sched"
)

// ManualClock is a sched.Clock advanced explicitly by tests.
//
// Unlike the runtime monotonic clock, ManualClock can be positioned
// anywhere, which is how starvation and batching tests put the engine
// exactly at a deadline boundary.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now sched.Millis
}

// NewManualClock creates a clock at time zero.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// Now returns the current reading.
func (c *ManualClock) Now() sched.Millis {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d milliseconds.
// Monotonic: negative advances panic rather than silently reordering time.
func (c *ManualClock) Advance(d sched.Millis) {
	if d < 0 {
		panic("testutil: clock cannot move backwards")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}

// Set positions the clock at an absolute reading not before the current one.
func (c *ManualClock) Set(t sched.Millis) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t < c.now {
		panic("testutil: clock cannot move backwards")
	}
	c.now = t
}
