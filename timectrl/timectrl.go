package timectrl

import "time"

// Clock is an interface for accessing wall-clock time. Output headers stamp
// their creation date through it so tests can pin the timestamp.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock reads the host clock in the local time zone, so formatted
// timestamps carry an explicit UTC offset.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC().Local()
}

// FixedClock always reports the same instant.
type FixedClock struct {
	current time.Time
}

// NewFixedClock constructs a clock pinned at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{current: t}
}

// Now implements Clock.
func (c *FixedClock) Now() time.Time {
	return c.current
}

// FormatISO8601 renders t as a timezone-aware ISO 8601 timestamp with
// microsecond precision.
func FormatISO8601(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000000-07:00")
}
