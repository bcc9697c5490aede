// Package retention enforces the age bound on the ledger: on-demand prunes
// plus an optional cron-driven sweeper.
package retention

import (
	"context"
	"log/slog"
	"time"

	"audittrail/internal/audit/store"
	dErrors "audittrail/pkg/domain-errors"
	"audittrail/pkg/requestcontext"

	"github.com/robfig/cron/v3"
)

// Manager deletes events older than a cutoff. Idempotent: re-running with
// the same or larger window is never an error and may remove zero rows.
type Manager struct {
	store  store.Store
	logger *slog.Logger
}

// NewManager constructs a retention manager over the given store.
func NewManager(st store.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: st, logger: logger}
}

// PruneOlderThan removes events stamped before now-days and returns the
// number removed. days must be positive; zero or negative is rejected so a
// misconfigured caller cannot wipe the whole ledger.
func (m *Manager) PruneOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation,
			"days must be a positive integer").WithFields("days")
	}

	cutoff := requestcontext.Now(ctx).AddDate(0, 0, -days)
	removed, err := m.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to prune audit events")
	}

	m.logger.InfoContext(ctx, "pruned audit events",
		"days", days,
		"cutoff", cutoff,
		"removed", removed,
	)
	return removed, nil
}

// Sweeper runs PruneOlderThan on a cron schedule so the ledger stays bounded
// without operator intervention. On-demand prunes remain available alongside.
type Sweeper struct {
	manager  *Manager
	logger   *slog.Logger
	cron     *cron.Cron
	schedule string
	days     int
	onError  func(ctx context.Context, err error)
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithErrorHook registers a callback invoked when a sweep fails, so failures
// can be recorded in the ledger itself.
func WithErrorHook(hook func(ctx context.Context, err error)) SweeperOption {
	return func(s *Sweeper) { s.onError = hook }
}

// NewSweeper builds a sweeper with a standard 5-field cron schedule.
func NewSweeper(manager *Manager, schedule string, days int, logger *slog.Logger, opts ...SweeperOption) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sweeper{
		manager:  manager,
		logger:   logger,
		cron:     cron.New(),
		schedule: schedule,
		days:     days,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.sweep(ctx) }); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid retention schedule")
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "retention sweeper started",
		"schedule", s.schedule,
		"days", s.days,
	)

	<-ctx.Done()
	stopped := s.cron.Stop()
	// Let an in-flight sweep finish before reporting shutdown, but do not
	// wait forever on a wedged store.
	select {
	case <-stopped.Done():
	case <-time.After(30 * time.Second):
	}
	return ctx.Err()
}

func (s *Sweeper) sweep(ctx context.Context) {
	removed, err := s.manager.PruneOlderThan(ctx, s.days)
	if err != nil {
		s.logger.ErrorContext(ctx, "retention sweep failed", "error", err)
		if s.onError != nil {
			s.onError(ctx, err)
		}
		return
	}
	s.logger.InfoContext(ctx, "retention sweep completed", "removed", removed)
}
