package domain

import (
	"fmt"
	"time"
)

// Interval half-open time range [Start, End) in UTC
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval normalizes both bounds to UTC and checks Start < End
func NewInterval(start, end time.Time) (Interval, error) {
	if start.IsZero() || end.IsZero() {
		return Interval{}, fmt.Errorf("%w: start and end are required", ErrInvalidInterval)
	}
	if !start.Before(end) {
		return Interval{}, fmt.Errorf("%w: start %s must be before end %s",
			ErrInvalidInterval, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start.UTC(), End: end.UTC()}, nil
}

// Overlaps two intervals conflict iff s1 < e2 && s2 < e1, back-to-back ranges do not
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Duration length of the interval
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Hours length in fractional hours, the pricing unit
func (i Interval) Hours() float64 {
	return i.Duration().Hours()
}

// Days UTC calendar days touched by the interval. The end bound is exclusive,
// so an interval ending exactly at midnight does not touch the next day.
func (i Interval) Days() []time.Time {
	first := truncateDay(i.Start)
	last := truncateDay(i.End.Add(-time.Nanosecond))

	days := make([]time.Time, 0, int(last.Sub(first).Hours()/24)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Extend returns [Start, newEnd)
func (i Interval) Extend(newEnd time.Time) Interval {
	return Interval{Start: i.Start, End: newEnd.UTC()}
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
