package domain

import "time"

// Item is a read-only record returned by an event source: a calendar event or a live video.
type Item struct {
	ID          string
	Title       string
	Description string
	Author      string // channel title for videos, organizer for events
	URL         string
	Start       time.Time
	End         *time.Time
	Created     time.Time
	AllDay      bool
}

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Occurrence is one calendar-day instance of the daily summary.
type Occurrence struct {
	Target time.Time
	ID     OccurrenceID
}

// OccurrenceID identifies an occurrence by its date in the configured timezone.
type OccurrenceID string

// Following returns the same wall-clock time one calendar day later.
func (o Occurrence) Following() Occurrence {
	next := o.Target.AddDate(0, 0, 1)
	return Occurrence{Target: next, ID: OccurrenceIDFor(next)}
}

// OccurrenceIDFor derives the occurrence key of a target instant in its own location.
func OccurrenceIDFor(target time.Time) OccurrenceID {
	return OccurrenceID(target.Format(time.DateOnly))
}
