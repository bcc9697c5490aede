// Package service orchestrates the audit ledger: ingestion, queries, and
// retention. One instance is built at process start and shared across
// requests; there is no per-request mutable state on this path.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	auditmetrics "audittrail/internal/audit/metrics"
	"audittrail/internal/audit/models"
	"audittrail/internal/audit/query"
	"audittrail/internal/audit/retention"
	"audittrail/internal/audit/store"
	dErrors "audittrail/pkg/domain-errors"
	"audittrail/pkg/requestcontext"
	"audittrail/pkg/sentinel"
)

// recordTimeout bounds a ledger write once it has been detached from the
// caller's cancellation.
const recordTimeout = 10 * time.Second

// AuditService is the public surface of the audit engine.
type AuditService struct {
	store     store.Store
	retention *retention.Manager
	logger    *slog.Logger
	metrics   *auditmetrics.Metrics
	tracer    trace.Tracer
}

// Option configures an AuditService.
type Option func(*AuditService)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *AuditService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches feature metrics.
func WithMetrics(m *auditmetrics.Metrics) Option {
	return func(s *AuditService) { s.metrics = m }
}

// New constructs the audit service over a ledger store.
func New(st store.Store, opts ...Option) *AuditService {
	s := &AuditService{
		store:  st,
		logger: slog.Default(),
		tracer: otel.Tracer("audittrail/internal/audit/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.retention = retention.NewManager(st, s.logger)
	return s
}

// Retention exposes the retention manager for sweeper wiring.
func (s *AuditService) Retention() *retention.Manager { return s.retention }

// Record validates the candidate, applies defaults, and persists it. The
// write runs on a context detached from the caller's cancellation: an audit
// write that started should complete even if the invoking request times out
// first, so fire-and-forget callers keep their delivery guarantee.
func (s *AuditService) Record(ctx context.Context, req *models.CreateEventRequest) (models.Event, error) {
	ctx, span := s.tracer.Start(ctx, "audit.Record")
	defer span.End()

	now := requestcontext.Now(ctx)
	if req != nil {
		req.Normalize()
	}
	if err := req.Validate(now); err != nil {
		s.metrics.IncRecordFailure("validation")
		return models.Event{}, err
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	stored, err := s.store.Insert(writeCtx, req.ToEvent(now))
	if err != nil {
		s.metrics.IncRecordFailure("storage")
		s.logger.ErrorContext(ctx, "failed to persist audit event",
			"request_id", requestcontext.RequestID(ctx),
			"service", req.Service,
			"action", req.Action,
			"error", err,
		)
		return models.Event{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist audit event")
	}

	span.SetAttributes(
		attribute.String("audit.service", string(stored.Service)),
		attribute.String("audit.action", string(stored.Action)),
	)
	s.metrics.IncRecorded(string(stored.Service), string(stored.Action))
	return stored, nil
}

// GetByID returns the event or a not-found error. Absence is an expected
// outcome for callers probing by id; the transport maps it to 404.
func (s *AuditService) GetByID(ctx context.Context, id int64) (models.Event, error) {
	event, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Event{}, dErrors.Newf(dErrors.CodeNotFound, "audit event %d not found", id)
		}
		return models.Event{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit event")
	}
	return event, nil
}

// Query resolves a filter into a bounded, ordered, paginated result set.
// Matching zero events is success, not failure.
func (s *AuditService) Query(ctx context.Context, filter query.Filter) ([]models.Event, error) {
	ctx, span := s.tracer.Start(ctx, "audit.Query")
	defer span.End()

	q, err := query.Build(filter)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	events, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query audit events")
	}
	s.metrics.ObserveQuery(time.Since(start))
	return events, nil
}

// GetByService returns the most recent events emitted by one service.
// A limit of 0 falls back to the default page size; negative limits are
// rejected as validation errors.
func (s *AuditService) GetByService(ctx context.Context, service string, limit int) ([]models.Event, error) {
	return s.Query(ctx, query.Filter{Service: service, Limit: limit})
}

// GetByEntity returns the full ledger history of one domain object, oldest
// last. Unbounded: callers on this path need the complete trail.
func (s *AuditService) GetByEntity(ctx context.Context, entityID, entityType string) ([]models.Event, error) {
	ctx, span := s.tracer.Start(ctx, "audit.GetByEntity")
	defer span.End()

	if entityID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "entityId is required").WithFields("entityId")
	}

	q := store.ListQuery{Predicate: store.Predicate{
		EntityID:   entityID,
		EntityType: entityType,
	}}
	events, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query audit events")
	}
	return events, nil
}

// DeleteByID removes a single event. Administrative escape hatch; the ledger
// is otherwise append-only apart from retention.
func (s *AuditService) DeleteByID(ctx context.Context, id int64) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "audit event %d not found", id)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete audit event")
	}
	s.logger.InfoContext(ctx, "audit event deleted",
		"request_id", requestcontext.RequestID(ctx),
		"event_id", id,
	)
	return nil
}

// Prune removes events older than the given number of days and returns the
// count removed.
func (s *AuditService) Prune(ctx context.Context, days int) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "audit.Prune")
	defer span.End()

	removed, err := s.retention.PruneOlderThan(ctx, days)
	s.metrics.ObservePrune(removed, err)
	return removed, err
}

// Ping reports whether the backing store is reachable.
func (s *AuditService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
