// Package query turns caller-supplied filter requests into valid, bounded
// store queries. Invalid filters fail fast here and never reach storage.
package query

import (
	"strings"
	"time"

	"audittrail/internal/audit/models"
	"audittrail/internal/audit/store"
	dErrors "audittrail/pkg/domain-errors"
)

const (
	// DefaultLimit applies when the caller omits a limit.
	DefaultLimit = 100
	// MaxLimit caps a single page.
	MaxLimit = 1000
)

// Filter is the external query surface: every field optional, equality
// matching only. StartDate and EndDate accept RFC 3339 timestamps or plain
// YYYY-MM-DD dates (the end date is then an exclusive bound at the start of
// the following day).
type Filter struct {
	Service    string
	Action     string
	LogLevel   string
	UserID     string
	EntityID   string
	EntityType string
	StartDate  string
	EndDate    string
	Page       int // 1-based; 0 means first page
	Limit      int // 0 means DefaultLimit
}

// Normalize trims and upcases enum fields, mirroring ingestion.
func (f *Filter) Normalize() {
	if f == nil {
		return
	}
	f.Service = strings.ToUpper(strings.TrimSpace(f.Service))
	f.Action = strings.ToUpper(strings.TrimSpace(f.Action))
	f.LogLevel = strings.ToUpper(strings.TrimSpace(f.LogLevel))
	f.UserID = strings.TrimSpace(f.UserID)
	f.EntityID = strings.TrimSpace(f.EntityID)
	f.EntityType = strings.TrimSpace(f.EntityType)
	f.StartDate = strings.TrimSpace(f.StartDate)
	f.EndDate = strings.TrimSpace(f.EndDate)
}

// Build validates the filter and compiles it into a bounded store query.
// Field checks run first so the caller learns about every fixable mistake
// before pagination is resolved.
func Build(f Filter) (store.ListQuery, error) {
	f.Normalize()

	p := store.Predicate{
		UserID:     f.UserID,
		EntityID:   f.EntityID,
		EntityType: f.EntityType,
	}

	if f.Service != "" {
		svc := models.Service(f.Service)
		if !svc.IsValid() {
			return store.ListQuery{}, dErrors.New(dErrors.CodeValidation,
				"service must be one of the known services").WithFields("service")
		}
		p.Service = svc
	}
	if f.Action != "" {
		act := models.Action(f.Action)
		if !act.IsValid() {
			return store.ListQuery{}, dErrors.New(dErrors.CodeValidation,
				"action must be one of the known actions").WithFields("action")
		}
		p.Action = act
	}
	if f.LogLevel != "" {
		lvl := models.LogLevel(f.LogLevel)
		if !lvl.IsValid() {
			return store.ListQuery{}, dErrors.New(dErrors.CodeValidation,
				"logLevel must be one of DEBUG, INFO, WARN, ERROR").WithFields("logLevel")
		}
		p.LogLevel = lvl
	}

	if f.StartDate != "" {
		since, _, err := parseBound(f.StartDate)
		if err != nil {
			return store.ListQuery{}, dErrors.New(dErrors.CodeValidation,
				"startDate must be an RFC 3339 timestamp or YYYY-MM-DD date").WithFields("startDate")
		}
		p.Since = &since
	}
	if f.EndDate != "" {
		t, dateOnly, err := parseBound(f.EndDate)
		if err != nil {
			return store.ListQuery{}, dErrors.New(dErrors.CodeValidation,
				"endDate must be an RFC 3339 timestamp or YYYY-MM-DD date").WithFields("endDate")
		}
		if dateOnly {
			// Whole-day semantics: an end date of 2026-01-02 includes
			// everything stamped during that day.
			t = t.Add(24 * time.Hour)
		}
		p.Until = &t
	}
	if p.Since != nil && p.Until != nil && p.Since.After(*p.Until) {
		return store.ListQuery{}, dErrors.New(dErrors.CodeValidation,
			"startDate must not be after endDate").WithFields("startDate", "endDate")
	}

	limit := f.Limit
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 1 || limit > MaxLimit:
		return store.ListQuery{}, dErrors.Newf(dErrors.CodeValidation,
			"limit must be between 1 and %d", MaxLimit).WithFields("limit")
	}

	page := f.Page
	switch {
	case page == 0:
		page = 1
	case page < 1:
		return store.ListQuery{}, dErrors.New(dErrors.CodeValidation,
			"page must be 1 or greater").WithFields("page")
	}

	return store.ListQuery{
		Predicate: p,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}, nil
}

// parseBound accepts RFC 3339 or date-only input. The bool result reports
// whether the value was date-only.
func parseBound(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), true, nil
}
