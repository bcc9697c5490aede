// Package memory provides a mutex-guarded in-memory ledger store. It backs
// unit tests and local development; production uses the postgres store.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"audittrail/internal/audit/models"
	"audittrail/internal/audit/store"
	"audittrail/pkg/sentinel"
)

// InMemory keeps events in insertion order and evaluates predicates in Go.
type InMemory struct {
	mu     sync.RWMutex
	nextID int64
	events []models.Event
	clock  func() time.Time
}

// Option configures an InMemory store.
type Option func(*InMemory)

// WithClock injects a clock for deterministic CreatedAt stamps in tests.
func WithClock(clock func() time.Time) Option {
	return func(s *InMemory) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewInMemory constructs an empty store.
func NewInMemory(opts ...Option) *InMemory {
	s := &InMemory{nextID: 1, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) Insert(_ context.Context, event models.Event) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().UTC()
	event.ID = s.nextID
	s.nextID++
	event.CreatedAt = now
	event.UpdatedAt = now
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	event.Details = maps.Clone(event.Details)

	s.events = append(s.events, event)
	return copyEvent(event), nil
}

func (s *InMemory) FindByID(_ context.Context, id int64) (models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.events {
		if e.ID == id {
			return copyEvent(e), nil
		}
	}
	return models.Event{}, sentinel.ErrNotFound
}

func (s *InMemory) Find(_ context.Context, q store.ListQuery) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Event, 0)
	for _, e := range s.events {
		if q.Predicate.Matches(e) {
			matched = append(matched, e)
		}
	}

	// Timestamp descending, id descending tie-break. Keeps repeated queries
	// over a stable dataset deterministic.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []models.Event{}, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]models.Event, len(matched))
	for i, e := range matched {
		out[i] = copyEvent(e)
	}
	return out, nil
}

func (s *InMemory) Count(_ context.Context, p store.Predicate) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.events {
		if p.Matches(e) {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.events {
		if e.ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemory) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var removed int64
	for _, e := range s.events {
		if e.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return removed, nil
}

func (s *InMemory) Ping(context.Context) error { return nil }

// copyEvent returns a defensive copy so callers cannot mutate stored state.
func copyEvent(e models.Event) models.Event {
	e.Details = maps.Clone(e.Details)
	return e
}
