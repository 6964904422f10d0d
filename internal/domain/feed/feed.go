// Package feed implements the bounded newest-first event buffer.
package feed

import "github.com/okian/irontrials/internal/domain/model"

// Feed holds at most Cap events, newest at index 0. Push is the only
// mutation.
//
// A Feed is not safe for concurrent use.
type Feed struct {
	events   []model.GameEvent
	capacity int
}

// New returns an empty feed. A capacity below 1 is raised to 1.
func New(capacity int) *Feed {
	if capacity < 1 {
		capacity = 1
	}
	return &Feed{
		events:   make([]model.GameEvent, 0, capacity),
		capacity: capacity,
	}
}

// Push inserts ev at the front and drops the oldest entries past capacity.
func (f *Feed) Push(ev model.GameEvent) {
	if len(f.events) < f.capacity {
		f.events = append(f.events, model.GameEvent{})
	}
	copy(f.events[1:], f.events[:len(f.events)-1])
	f.events[0] = ev
}

// Snapshot returns a copy of the events, newest first.
func (f *Feed) Snapshot() []model.GameEvent {
	out := make([]model.GameEvent, len(f.events))
	copy(out, f.events)
	return out
}

// Len returns the number of buffered events.
func (f *Feed) Len() int { return len(f.events) }

// Cap returns the feed capacity.
func (f *Feed) Cap() int { return f.capacity }
