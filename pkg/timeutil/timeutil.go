// Package timeutil provides time utilities for the LearnFlow backend.
// All persisted timestamps are UTC; this package centralizes the clock
// so that expiry checks and transcript ordering are testable.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"sync"
	"time"
)

// Clock abstracts time.Now for code that makes time-based decisions
// (session expiry, message ordering, stale chat sweeps).
type Clock interface {
	Now() time.Time
}

// RealClock returns the system time in UTC.
type RealClock struct{}

// Now returns the current UTC time.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// SystemClock is the default clock used in production wiring.
var SystemClock Clock = RealClock{}

// FakeClock is a manually advanced clock for tests.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a fake clock frozen at the given instant.
func NewFakeClock(at time.Time) *FakeClock {
	return &FakeClock{now: at.UTC()}
}

// Now returns the frozen instant.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward (or backward with a negative d).
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set pins the clock to an exact instant.
func (c *FakeClock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at.UTC()
}

// StartOfDay returns the start of the UTC day containing t.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last nanosecond of the UTC day containing t.
func EndOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 999999999, time.UTC)
}

// IsSameDay checks if two times fall on the same UTC day.
func IsSameDay(t1, t2 time.Time) bool {
	u1, u2 := t1.UTC(), t2.UTC()
	return u1.Year() == u2.Year() && u1.YearDay() == u2.YearDay()
}

// DaysBetween calculates the number of whole days between two times.
func DaysBetween(t1, t2 time.Time) int {
	d1 := StartOfDay(t1)
	d2 := StartOfDay(t2)
	days := int(d2.Sub(d1).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
)

// FormatRelative returns a human-readable relative time string against
// the given reference instant.
func FormatRelative(t, now time.Time) string {
	d := now.Sub(t)
	future := d < 0
	if future {
		d = -d
	}

	var s string
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		s = fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		s = fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		s = fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		s = fmt.Sprintf("%dw", int(d.Hours()/24/7))
	}

	if future {
		return "in " + s
	}
	return s + " ago"
}

// ParseDate parses a date string (YYYY-MM-DD) as UTC.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(FormatDate, value)
}
