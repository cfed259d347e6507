// Package tracker keeps the in-memory state pollers use to avoid handling the same thing twice.
//
// Trackers are owned by a single poller goroutine and are not safe for concurrent use.
package tracker

import "slices"

// Slots remembers the most recently processed identifiers, up to a fixed capacity.
// With capacity 1 it is a single last-processed slot.
type Slots[K comparable] struct {
	ids      []K // oldest first
	capacity int
}

// NewSlots returns a tracker holding at most capacity identifiers. Capacity below 1 is treated as 1.
func NewSlots[K comparable](capacity int) *Slots[K] {
	if capacity < 1 {
		capacity = 1
	}
	return &Slots[K]{ids: make([]K, 0, capacity), capacity: capacity}
}

// ShouldProcess reports whether id differs from every remembered identifier.
func (s *Slots[K]) ShouldProcess(id K) bool {
	return !slices.Contains(s.ids, id)
}

// MarkProcessed records id as the most recent identifier, evicting the oldest when full.
// Marking an id that is already remembered only makes it the most recent.
func (s *Slots[K]) MarkProcessed(id K) {
	if i := slices.Index(s.ids, id); i >= 0 {
		s.ids = slices.Delete(s.ids, i, i+1)
	}
	if len(s.ids) == s.capacity {
		s.ids = slices.Delete(s.ids, 0, 1)
	}
	s.ids = append(s.ids, id)
}

// Last returns the most recently marked identifier.
func (s *Slots[K]) Last() (K, bool) {
	if len(s.ids) == 0 {
		var zero K
		return zero, false
	}
	return s.ids[len(s.ids)-1], true
}

// Len is the number of remembered identifiers.
func (s *Slots[K]) Len() int {
	return len(s.ids)
}
