package scheduler

import "time"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// CivilNow returns the clock's current instant as a civil date ("2006-01-02")
// and time ("15:04") in loc.
func CivilNow(clock Clock, loc *time.Location) (date string, clockTime string) {
	local := clock.Now().In(loc)
	return local.Format(DateLayout), local.Format(TimeLayout)
}

// ParseDate validates a civil date string.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}
