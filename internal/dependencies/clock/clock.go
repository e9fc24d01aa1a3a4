package clock

import "time"

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock, reporting times in the
// guild's location
type RealClock struct {
	loc *time.Location
}

// New creates a new RealClock. A nil location means UTC.
func New(loc *time.Location) *RealClock {
	if loc == nil {
		loc = time.UTC
	}
	return &RealClock{loc: loc}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Location returns the location Now reports in
func (c *RealClock) Location() *time.Location {
	return c.loc
}
