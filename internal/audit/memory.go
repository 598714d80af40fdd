package audit

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryStore keeps events in process. It backs development setups and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends a copy of the event.
func (s *MemoryStore) Record(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.events = append(s.events, cloneEvent(e))
	s.mu.Unlock()
	return nil
}

// Query returns events matching filters, newest first.
func (s *MemoryStore) Query(ctx context.Context, filters Filters, limit, offset int) ([]Event, error) {
	s.mu.RLock()
	var matched []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if filters.Matches(s.events[i]) {
			matched = append(matched, cloneEvent(s.events[i]))
		}
	}
	s.mu.RUnlock()
	slices.SortStableFunc(matched, func(a, b Event) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// Events returns a snapshot of all events in insertion order.
func (s *MemoryStore) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	for i, e := range s.events {
		out[i] = cloneEvent(e)
	}
	return out
}

// cloneEvent detaches the reference fields so stored events stay immutable.
func cloneEvent(e Event) Event {
	e.ActorRoles = slices.Clone(e.ActorRoles)
	e.Details = maps.Clone(e.Details)
	return e
}
