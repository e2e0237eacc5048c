package clock

import "time"

// Clock is injected wherever "today" or a timestamp decides behavior.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func System() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type fixedClock struct {
	now time.Time
}

// Fixed always returns t. Tests only.
func Fixed(t time.Time) Clock {
	return fixedClock{now: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// DateIn formats the clock's current instant as a YYYY-MM-DD date in loc.
func DateIn(c Clock, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return c.Now().In(loc).Format(time.DateOnly)
}
