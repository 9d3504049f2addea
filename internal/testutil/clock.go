package testutil

import (
	"sync"
	"time"
)

// Clock is a manually advanced clock. Its Now method can be passed wherever
// a service accepts a func() time.Time.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock stopped at start
func NewClock(start time.Time) *Clock {
	return &Clock{now: start.UTC()}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}
