package calendar

import "time"

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the wall-clock time in Location (time.Local when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// Today returns the local calendar date of clock.Now().
func Today(clock Clock) Date {
	return FromTime(clock.Now())
}
