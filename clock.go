package voxcanvas

import (
	"time"
)

// Clock measures the frame delta. Deltas are capped so a stalled window does
// not finish a camera transition in one step.
type Clock struct {
	Time  time.Time
	Dt    time.Duration
	MaxDt time.Duration
	now   func() time.Time
}

func NewClock() *Clock {
	return &Clock{
		Time:  time.Now(),
		MaxDt: 100 * time.Millisecond,
		now:   time.Now,
	}
}

// Tick advances the clock and returns the capped delta since the previous tick.
func (c *Clock) Tick() time.Duration {
	now := c.now()
	c.Dt = now.Sub(c.Time)
	c.Time = now
	if c.Dt < 0 {
		c.Dt = 0
	}
	if c.MaxDt > 0 && c.Dt > c.MaxDt {
		c.Dt = c.MaxDt
	}
	return c.Dt
}
