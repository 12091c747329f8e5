package models

import (
	"fmt"
	"time"
)

// Serialized layouts for the three temporal kinds that appear in reports.
// Datetimes drop the zone and sub-second precision on purpose: report
// consumers diff generated documents, and wall-clock second precision is
// the stable contract.
const (
	DateTimeLayout  = "2006-01-02T15:04:05"
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04:05"
)

// Date is a calendar date without a time component, such as the day a
// finding was opened. It serializes as "2006-01-02".
type Date struct {
	time.Time
}

// NewDate returns the Date for the given calendar day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a "2006-01-02" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("models: parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

// String returns the date formatted as "2006-01-02".
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as a "2006-01-02" string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

// UnmarshalJSON decodes a "2006-01-02" string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("models: date must be a JSON string, got %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a wall-clock time without a date component, such as a
// recurring schedule slot. It serializes as "15:04:05".
type TimeOfDay struct {
	time.Time
}

// NewTimeOfDay returns the TimeOfDay for the given clock reading.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay{time.Date(0, time.January, 1, hour, minute, second, 0, time.UTC)}
}

// ParseTimeOfDay parses a "15:04:05" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(TimeOfDayLayout, s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("models: parse time of day %q: %w", s, err)
	}
	return TimeOfDay{t}, nil
}

// String returns the time formatted as "15:04:05".
func (t TimeOfDay) String() string {
	return t.Format(TimeOfDayLayout)
}

// MarshalJSON encodes the time as a "15:04:05" string.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(TimeOfDayLayout) + `"`), nil
}

// UnmarshalJSON decodes a "15:04:05" string.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("models: time of day must be a JSON string, got %s", s)
	}
	parsed, err := ParseTimeOfDay(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
