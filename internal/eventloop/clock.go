package eventloop

import "time"

// Clock yields timestamps in milliseconds.
type Clock interface {
	Millis() int64
}

// monotonicClock anchors the wall clock once and advances it with the
// monotonic reading, so timestamps never go backwards when the system
// clock is adjusted.
type monotonicClock struct {
	base time.Time
}

// NewMonotonicClock returns a clock whose readings never decrease.
func NewMonotonicClock() Clock {
	return &monotonicClock{base: time.Now()}
}

func (c *monotonicClock) Millis() int64 {
	return c.base.UnixMilli() + time.Since(c.base).Milliseconds()
}

// ManualClock is a Clock for tests that only moves when told to.
type ManualClock struct {
	Now int64
}

// Millis returns the current manual reading.
func (c *ManualClock) Millis() int64 {
	return c.Now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.Now += d.Milliseconds()
}
