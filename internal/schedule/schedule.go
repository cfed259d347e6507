// Package schedule computes daily occurrence instants and the query windows derived from them.
package schedule

import (
	"fmt"
	"time"

	"calendar_bot/internal/domain"
)

// Clock is a time of day at minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses a 24-hour "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("parse time of day %q: %w", s, domain.ErrConfigInvalid)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the clock time on the calendar day of day, in loc.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.In(loc).Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc)
}

// NextOccurrence returns today's occurrence of clock in loc, or tomorrow's when now is
// already past it. Comparison is at minute precision: a now inside the configured minute
// still resolves to today and fires immediately.
func NextOccurrence(now time.Time, clock Clock, loc *time.Location) domain.Occurrence {
	local := now.In(loc)
	target := clock.On(local, loc)

	if local.Truncate(time.Minute).After(target) {
		target = target.AddDate(0, 0, 1)
		// AddDate normalizes through DST gaps; pin the wall clock again.
		target = clock.On(target, loc)
	}

	return domain.Occurrence{Target: target, ID: domain.OccurrenceIDFor(target)}
}

// Summary windows cover the streaming day: 08:00 until 04:00 the next morning.
const (
	summaryDayStartHour = 8
	summaryDayEndHour   = 4
)

// SummaryWindow returns the range of events covered by a summary sent at at.
// Before 04:00 the previous day's window is still open.
func SummaryWindow(at time.Time, loc *time.Location) domain.Window {
	local := at.In(loc)
	day := local
	if local.Hour() < summaryDayEndHour {
		day = local.AddDate(0, 0, -1)
	}

	y, m, d := day.Date()
	start := time.Date(y, m, d, summaryDayStartHour, 0, 0, 0, loc)
	end := time.Date(y, m, d+1, summaryDayEndHour, 0, 0, 0, loc)

	return domain.Window{Start: start, End: end}
}

// UntilTarget is the wait before o fires, never negative.
func UntilTarget(now time.Time, o domain.Occurrence) time.Duration {
	d := o.Target.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
