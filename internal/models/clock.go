package models

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day in the monitor's local zone, formatted YYYY-MM-DD
type Date string

// DateOf returns the calendar day of t in t's location
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// TimeOfDay is the offset from local midnight at which a value was retrieved
type TimeOfDay time.Duration

// TimeOfDayOf returns the wall-clock time of day of t in t's location. It is
// built from the clock fields rather than elapsed time since midnight, so DST
// transition days keep their wall-clock readings.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return Clock(t.Hour(), t.Minute(), t.Second()) + TimeOfDay(t.Nanosecond())
}

// ParseTimeOfDay parses HH:MM or HH:MM:SS, with optional fractional seconds
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	layout := "15:04"
	switch strings.Count(s, ":") {
	case 1:
	case 2:
		layout = "15:04:05"
		if strings.Contains(s, ".") {
			layout = "15:04:05.999999999"
		}
	default:
		return 0, fmt.Errorf("invalid time %q: expected HH:MM or HH:MM:SS", s)
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return TimeOfDayOf(t), nil
}

// Clock builds a TimeOfDay from hour, minute and second
func Clock(hour, minute, second int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

// Distance returns the absolute distance between two times of day
func (t TimeOfDay) Distance(other TimeOfDay) time.Duration {
	d := time.Duration(t - other)
	if d < 0 {
		return -d
	}
	return d
}

// String renders HH:MM:SS, adding fractional seconds only when present
func (t TimeOfDay) String() string {
	ref := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(t))
	if ref.Nanosecond() != 0 {
		return ref.Format("15:04:05.999999999")
	}
	return ref.Format("15:04:05")
}

// MarshalText implements encoding.TextMarshaler
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
