package shared

import "time"

// Clock supplies the current time. Every timestamp written by the
// publication lifecycle comes from a Clock so tests can pin it.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant until moved
type FixedClock struct {
	T time.Time
}

// Now returns the pinned instant
func (c *FixedClock) Now() time.Time {
	return c.T
}

// Advance moves the pinned instant forward by d
func (c *FixedClock) Advance(d time.Duration) {
	c.T = c.T.Add(d)
}
