package tracker

import (
	"time"

	"calendar_bot/internal/domain"
)

// SyncWindow tracks the upper bound of the last successfully scanned range so that
// consecutive scans tile the timeline without gaps or overlaps.
type SyncWindow struct {
	last time.Time
}

// NewSyncWindow starts tracking at start; nothing before it is ever scanned.
func NewSyncWindow(start time.Time) *SyncWindow {
	return &SyncWindow{last: start}
}

// Next returns the range to scan up to upper. The range is empty when upper is not after
// the last bound.
func (w *SyncWindow) Next(upper time.Time) domain.Window {
	if upper.Before(w.last) {
		upper = w.last
	}
	return domain.Window{Start: w.last, End: upper}
}

// Advance moves the lower bound to upper. It must only be called after the range ending at
// upper was fetched successfully. Bounds that would move backwards are ignored.
func (w *SyncWindow) Advance(upper time.Time) {
	if upper.After(w.last) {
		w.last = upper
	}
}

// Last is the instant the next scan starts from.
func (w *SyncWindow) Last() time.Time {
	return w.last
}
