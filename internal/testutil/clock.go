package testutil

import (
	"sync"
	"time"
)

// DefaultNow is the instant fixed clocks start at unless told otherwise.
var DefaultNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

// FixedClock is a settable clock for tests of age operators.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock stopped at now. A zero time means DefaultNow.
func NewFixedClock(now time.Time) *FixedClock {
	if now.IsZero() {
		now = DefaultNow
	}
	return &FixedClock{now: now}
}

// Now returns the clock's current instant. Pass it as ops.WithClock(c.Now).
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
