// Package timewindow provides clock-of-day parsing and time window arithmetic.
package timewindow

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidClock is returned when a clock string is not "HH:MM".
var ErrInvalidClock = errors.New("invalid clock time")

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// MustClock parses s and panics on error. Intended for package-level tables.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseClock parses a "HH:MM" 24-hour clock time.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, okH := twoDigits(s[0], s[1])
	m, okM := twoDigits(s[3], s[4])
	if !okH || !okM || h > 23 || m > 59 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// ClockOf returns the clock time of t in loc.
func ClockOf(t time.Time, loc *time.Location) Clock {
	lt := t.In(loc)
	return Clock{Hour: lt.Hour(), Minute: lt.Minute()}
}

// On returns the instant at which this clock time occurs on the calendar day
// containing day, as seen in loc. Nonexistent local times (DST gaps) are
// normalized by time.Date.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, loc)
}

// Minutes returns minutes since midnight.
func (c Clock) Minutes() int { return c.Hour*60 + c.Minute }

// Add returns the clock shifted by d, wrapping around midnight.
func (c Clock) Add(d time.Duration) Clock {
	m := (c.Minutes() + int(d/time.Minute)) % (24 * 60)
	if m < 0 {
		m += 24 * 60
	}
	return Clock{Hour: m / 60, Minute: m % 60}
}

// Before reports whether c is earlier in the day than o.
func (c Clock) Before(o Clock) bool { return c.Minutes() < o.Minutes() }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

func (c Clock) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value stores the clock as "HH:MM" text.
func (c Clock) Value() (driver.Value, error) { return c.String(), nil }

// Scan reads a clock from a text column.
func (c *Clock) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseClock(v)
		if err != nil {
			return err
		}
		*c = parsed
	case []byte:
		return c.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Clock", src)
	}
	return nil
}

// Midpoint returns the instant halfway between a and b.
func Midpoint(a, b time.Time) time.Time {
	return a.Add(b.Sub(a) / 2)
}

// Clamp bounds t to [earliest, latest]. If the bounds are inverted the
// earlier of the two wins.
func Clamp(t, earliest, latest time.Time) time.Time {
	if latest.Before(earliest) {
		return latest
	}
	if t.Before(earliest) {
		return earliest
	}
	if t.After(latest) {
		return latest
	}
	return t
}

// MinutesBetween returns whole minutes from a to b, floored and never negative.
func MinutesBetween(a, b time.Time) int {
	d := b.Sub(a)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// EarlierOf returns the earlier instant.
func EarlierOf(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

// LaterOf returns the later instant.
func LaterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
