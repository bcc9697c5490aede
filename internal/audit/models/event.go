// Package models defines the audit event record, its closed enumerations,
// and ingestion-time validation.
package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Service identifies the microservice that emitted an event. The set is
// closed; unknown values are rejected at ingestion, never coerced.
type Service string

const (
	ServiceUser        Service = "USER"
	ServiceAudit       Service = "AUDIT"
	ServiceProduction  Service = "PRODUCTION"
	ServiceProcessing  Service = "PROCESSING"
	ServiceStorage     Service = "STORAGE"
	ServicePerformance Service = "PERFORMANCE"
	ServiceAnalytics   Service = "ANALYTICS"
	ServiceSystem      Service = "SYSTEM"
)

var services = map[Service]struct{}{
	ServiceUser:        {},
	ServiceAudit:       {},
	ServiceProduction:  {},
	ServiceProcessing:  {},
	ServiceStorage:     {},
	ServicePerformance: {},
	ServiceAnalytics:   {},
	ServiceSystem:      {},
}

// IsValid reports whether s is a member of the closed service set.
func (s Service) IsValid() bool {
	_, ok := services[s]
	return ok
}

// Action categorizes what happened.
type Action string

const (
	ActionCreate      Action = "CREATE"
	ActionUpdate      Action = "UPDATE"
	ActionDelete      Action = "DELETE"
	ActionSystemEvent Action = "SYSTEM_EVENT"
	ActionError       Action = "ERROR"
)

var actions = map[Action]struct{}{
	ActionCreate:      {},
	ActionUpdate:      {},
	ActionDelete:      {},
	ActionSystemEvent: {},
	ActionError:       {},
}

// IsValid reports whether a is a member of the closed action set.
func (a Action) IsValid() bool {
	_, ok := actions[a]
	return ok
}

// LogLevel is the severity attached to an event.
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

var levels = map[LogLevel]struct{}{
	LevelDebug: {},
	LevelInfo:  {},
	LevelWarn:  {},
	LevelError: {},
}

// IsValid reports whether l is a member of the closed severity set.
func (l LogLevel) IsValid() bool {
	_, ok := levels[l]
	return ok
}

// MaxMessageLength bounds the free-text message field, in characters. The
// database CHECK uses char_length, so this must count runes, not bytes.
const MaxMessageLength = 1000

// Event is one immutable ledger entry. ID, CreatedAt and UpdatedAt are
// assigned by the store at insert; everything else is fixed by the caller at
// creation and never mutated afterwards.
type Event struct {
	ID         int64          `json:"id"`
	Service    Service        `json:"service"`
	Action     Action         `json:"action"`
	LogLevel   LogLevel       `json:"logLevel"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	UserEmail  string         `json:"userEmail,omitempty"`
	EntityID   string         `json:"entityId,omitempty"`
	EntityType string         `json:"entityType,omitempty"`
	IPAddress  string         `json:"ipAddress,omitempty"`
	UserAgent  string         `json:"userAgent,omitempty"`
	Source     string         `json:"source,omitempty"`
	Successful bool           `json:"successful"`
	Timestamp  time.Time      `json:"timestamp"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// ValidationResult collects every invariant violation found in a candidate
// event so callers see all offending fields at once.
type ValidationResult struct {
	Errors []string
	Fields []string
}

// Valid reports whether the candidate passed every check.
func (r ValidationResult) Valid() bool { return len(r.Errors) == 0 }

func (r *ValidationResult) reject(field, msg string) {
	r.Fields = append(r.Fields, field)
	r.Errors = append(r.Errors, msg)
}

// Validate checks the candidate event against the record invariants. Pure;
// no side effects. Absent LogLevel is allowed here because the service
// defaults it to INFO before persisting.
func (e Event) Validate() ValidationResult {
	var res ValidationResult

	if !e.Service.IsValid() {
		res.reject("service", "service must be one of the known services")
	}
	if !e.Action.IsValid() {
		res.reject("action", "action must be one of the known actions")
	}
	if strings.TrimSpace(e.Message) == "" {
		res.reject("message", "message is required")
	} else if utf8.RuneCountInString(e.Message) > MaxMessageLength {
		res.reject("message", "message must be 1000 characters or less")
	}
	if e.LogLevel != "" && !e.LogLevel.IsValid() {
		res.reject("logLevel", "logLevel must be one of DEBUG, INFO, WARN, ERROR")
	}

	return res
}
