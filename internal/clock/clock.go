package clock

import (
	"sync"
	"time"
)

// Clock yields unix timestamps in seconds. Successive calls never go
// backwards.
type Clock interface {
	Now() int64
}

// System reads the wall clock and clamps it so it never decreases.
type System struct {
	mu   sync.Mutex
	last int64
}

func (c *System) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now := time.Now().Unix(); now > c.last {
		c.last = now
	}
	return c.last
}

// Manual is a clock advanced explicitly, for tests and local simulations.
type Manual struct {
	mu  sync.Mutex
	now int64
}

// NewManual returns a clock starting at start.
func NewManual(start int64) *Manual {
	return &Manual{now: start}
}

func (c *Manual) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d seconds. Negative values are ignored.
func (c *Manual) Advance(d int64) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}
