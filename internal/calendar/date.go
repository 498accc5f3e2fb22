package calendar

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const layout = "2006-01-02"

// Date is a civil calendar date with no time of day or location.
// The zero value is 0001-01-01.
type Date struct {
	t time.Time
}

// New returns the date for year, month, day. Out-of-range values are
// normalized the way time.Date normalizes them.
func New(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime returns the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	return New(t.Year(), t.Month(), t.Day())
}

// Parse parses a YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

func (d Date) String() string { return d.t.Format(layout) }

func (d Date) Year() int { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool { return d.t.IsZero() }

// YearMonth returns the "YYYY-MM" month key of d.
func (d Date) YearMonth() string { return d.t.Format("2006-01") }

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores d as YYYY-MM-DD text.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	case time.Time:
		*d = FromTime(v)
		return nil
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
}

const secondsPerDay = 24 * 60 * 60

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b Date) int {
	// Both sides are UTC midnights. Unix seconds avoid the ~292 year
	// limit of time.Duration.
	return int((b.t.Unix() - a.t.Unix()) / secondsPerDay)
}

// WeekStart returns the most recent Sunday on or before d.
func WeekStart(d Date) Date {
	return d.AddDays(-int(d.Weekday()))
}

// YearMonthOf returns the "YYYY-MM" month key of t in t's location.
func YearMonthOf(t time.Time) string {
	return t.Format("2006-01")
}

// ParseYearMonth parses a "YYYY-MM" key and returns the first day of that month.
func ParseYearMonth(s string) (Date, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return Date{t: t}, nil
}

func ValidYearMonth(s string) bool {
	_, err := ParseYearMonth(s)
	return err == nil
}

// DaysInMonth returns every date of the month starting at first.
func DaysInMonth(first Date) []Date {
	first = New(first.Year(), first.Month(), 1)
	var days []Date
	for d := first; d.Month() == first.Month(); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}
