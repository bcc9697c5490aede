// Package postgres implements the ledger store on PostgreSQL via
// database/sql and lib/pq. The audit_events table is append-mostly: inserts
// and reads dominate, deletes happen only through retention or an explicit
// administrative removal.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"audittrail/internal/audit/models"
	"audittrail/internal/audit/store"
	"audittrail/pkg/sentinel"
)

// Store persists events in the audit_events table.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed ledger store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const eventColumns = `id, service, action, log_level, message, details, user_id, user_email, entity_id, entity_type, ip_address, user_agent, source, successful, timestamp, created_at, updated_at`

func (s *Store) Insert(ctx context.Context, event models.Event) (models.Event, error) {
	details, err := marshalDetails(event.Details)
	if err != nil {
		return models.Event{}, fmt.Errorf("marshal event details: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	// Single INSERT with RETURNING keeps id assignment and bookkeeping
	// stamps atomic: a partially written event is never visible.
	query := `
		INSERT INTO audit_events (
			service, action, log_level, message, details,
			user_id, user_email, entity_id, entity_type,
			ip_address, user_agent, source, successful, timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, query,
		string(event.Service),
		string(event.Action),
		string(event.LogLevel),
		event.Message,
		details,
		nullable(event.UserID),
		nullable(event.UserEmail),
		nullable(event.EntityID),
		nullable(event.EntityType),
		nullable(event.IPAddress),
		nullable(event.UserAgent),
		nullable(event.Source),
		event.Successful,
		event.Timestamp,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return models.Event{}, fmt.Errorf("insert audit event: %w", err)
	}
	return event, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM audit_events WHERE id = $1`

	event, err := scanEvent(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Event{}, sentinel.ErrNotFound
		}
		return models.Event{}, fmt.Errorf("find audit event: %w", err)
	}
	return event, nil
}

func (s *Store) Find(ctx context.Context, q store.ListQuery) ([]models.Event, error) {
	where, args := buildWhere(q.Predicate)

	query := `SELECT ` + eventColumns + ` FROM audit_events` + where +
		` ORDER BY timestamp DESC, id DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func (s *Store) Count(ctx context.Context, p store.Predicate) (int64, error) {
	where, args := buildWhere(p)

	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete audit event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete audit event: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_events WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old audit events: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete old audit events: %w", err)
	}
	return removed, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping audit store: %w", err)
	}
	return nil
}

// buildWhere compiles a predicate into a WHERE clause with positional args.
// The predicate is a flat conjunction, so clauses simply join with AND.
func buildWhere(p store.Predicate) (string, []any) {
	clauses := make([]string, 0, 8)
	args := make([]any, 0, 8)

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if p.Service != "" {
		add("service = $%d", string(p.Service))
	}
	if p.Action != "" {
		add("action = $%d", string(p.Action))
	}
	if p.LogLevel != "" {
		add("log_level = $%d", string(p.LogLevel))
	}
	if p.UserID != "" {
		add("user_id = $%d", p.UserID)
	}
	if p.EntityID != "" {
		add("entity_id = $%d", p.EntityID)
	}
	if p.EntityType != "" {
		add("entity_type = $%d", p.EntityType)
	}
	if p.Since != nil {
		add("timestamp >= $%d", *p.Since)
	}
	if p.Until != nil {
		add("timestamp < $%d", *p.Until)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (models.Event, error) {
	var (
		event      models.Event
		details    []byte
		userID     sql.NullString
		userEmail  sql.NullString
		entityID   sql.NullString
		entityType sql.NullString
		ipAddress  sql.NullString
		userAgent  sql.NullString
		source     sql.NullString
	)

	err := row.Scan(
		&event.ID,
		&event.Service,
		&event.Action,
		&event.LogLevel,
		&event.Message,
		&details,
		&userID,
		&userEmail,
		&entityID,
		&entityType,
		&ipAddress,
		&userAgent,
		&source,
		&event.Successful,
		&event.Timestamp,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return models.Event{}, err
	}

	if len(details) > 0 {
		if err := json.Unmarshal(details, &event.Details); err != nil {
			return models.Event{}, fmt.Errorf("unmarshal event details: %w", err)
		}
	}
	event.UserID = userID.String
	event.UserEmail = userEmail.String
	event.EntityID = entityID.String
	event.EntityType = entityType.String
	event.IPAddress = ipAddress.String
	event.UserAgent = userAgent.String
	event.Source = source.String

	return event, nil
}

func marshalDetails(details map[string]any) ([]byte, error) {
	if len(details) == 0 {
		return nil, nil
	}
	return json.Marshal(details)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
