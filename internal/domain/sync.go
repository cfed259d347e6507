package domain

import "time"

// PollerState is a read-only snapshot of what a poller has already handled.
type PollerState struct {
	LastSyncInstant         *time.Time
	LastHandledOccurrenceID OccurrenceID
	LastSeenItemID          string
	IsFirstRun              bool
}

// CycleStats holds statistics about one poller cycle.
type CycleStats struct {
	Poller   string
	Fetched  int
	New      int
	Skipped  int
	Notified int
	Errors   int
	Duration time.Duration
}
