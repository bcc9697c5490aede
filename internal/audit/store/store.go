// Package store defines the ledger persistence contract shared by the
// in-memory and PostgreSQL implementations.
package store

import (
	"context"
	"time"

	"audittrail/internal/audit/models"
)

// Predicate is a conjunction of equality filters plus an optional timestamp
// window. Zero-value fields are absent and match everything. Equality only;
// no pattern matching on this path.
type Predicate struct {
	Service    models.Service
	Action     models.Action
	LogLevel   models.LogLevel
	UserID     string
	EntityID   string
	EntityType string
	Since      *time.Time // inclusive lower bound on Timestamp
	Until      *time.Time // exclusive upper bound on Timestamp
}

// Matches reports whether the event satisfies every set filter. The memory
// store evaluates it directly; the postgres store compiles it to SQL.
func (p Predicate) Matches(e models.Event) bool {
	if p.Service != "" && e.Service != p.Service {
		return false
	}
	if p.Action != "" && e.Action != p.Action {
		return false
	}
	if p.LogLevel != "" && e.LogLevel != p.LogLevel {
		return false
	}
	if p.UserID != "" && e.UserID != p.UserID {
		return false
	}
	if p.EntityID != "" && e.EntityID != p.EntityID {
		return false
	}
	if p.EntityType != "" && e.EntityType != p.EntityType {
		return false
	}
	if p.Since != nil && e.Timestamp.Before(*p.Since) {
		return false
	}
	if p.Until != nil && !e.Timestamp.Before(*p.Until) {
		return false
	}
	return true
}

// ListQuery is a bounded, ordered read. Ordering is always timestamp
// descending with id descending as tie-break, so identical queries over a
// stable dataset return identical orderings. Limit 0 means unlimited
// (reserved for full entity-history reads).
type ListQuery struct {
	Predicate Predicate
	Limit     int
	Offset    int
}

// Store is the ledger persistence abstraction: append-only storage with
// point lookup, predicate listing, and predicate bulk deletion. Misses
// surface as sentinel.ErrNotFound; any other failure is a wrapped driver
// error. Reads return either the full requested set or an error, never a
// partial result.
type Store interface {
	// Insert assigns ID, CreatedAt and UpdatedAt, persists atomically, and
	// returns the stored form. A partially written event is never visible
	// to readers.
	Insert(ctx context.Context, event models.Event) (models.Event, error)

	// FindByID returns the event or sentinel.ErrNotFound.
	FindByID(ctx context.Context, id int64) (models.Event, error)

	// Find returns events matching the query in deterministic order.
	Find(ctx context.Context, q ListQuery) ([]models.Event, error)

	// Count returns the number of events matching the predicate.
	Count(ctx context.Context, p Predicate) (int64, error)

	// DeleteByID removes a single event; sentinel.ErrNotFound on miss.
	DeleteByID(ctx context.Context, id int64) error

	// DeleteOlderThan removes every event with Timestamp before cutoff and
	// returns the number removed. Zero is a valid result, not an error.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}
