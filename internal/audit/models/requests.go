package models

import (
	"strings"
	"time"

	dErrors "audittrail/pkg/domain-errors"
)

// CreateEventRequest is the creatable subset of Event as accepted at the
// boundary. LogLevel and Successful are optional; the service defaults them
// to INFO and true.
type CreateEventRequest struct {
	Service    string         `json:"service"`
	Action     string         `json:"action"`
	LogLevel   string         `json:"logLevel,omitempty"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	UserEmail  string         `json:"userEmail,omitempty"`
	EntityID   string         `json:"entityId,omitempty"`
	EntityType string         `json:"entityType,omitempty"`
	IPAddress  string         `json:"ipAddress,omitempty"`
	UserAgent  string         `json:"userAgent,omitempty"`
	Source     string         `json:"source,omitempty"`
	Successful *bool          `json:"successful,omitempty"`
	Timestamp  *time.Time     `json:"timestamp,omitempty"`
}

// Normalize trims whitespace and upcases enum fields so "user" and "USER"
// mean the same thing at the boundary.
func (r *CreateEventRequest) Normalize() {
	if r == nil {
		return
	}
	r.Service = strings.ToUpper(strings.TrimSpace(r.Service))
	r.Action = strings.ToUpper(strings.TrimSpace(r.Action))
	r.LogLevel = strings.ToUpper(strings.TrimSpace(r.LogLevel))
	r.UserID = strings.TrimSpace(r.UserID)
	r.EntityID = strings.TrimSpace(r.EntityID)
	r.EntityType = strings.TrimSpace(r.EntityType)
}

// ToEvent converts the request into a candidate Event. Defaults are applied
// here: LogLevel INFO, Successful true, Timestamp now when absent.
func (r *CreateEventRequest) ToEvent(now time.Time) Event {
	e := Event{
		Service:    Service(r.Service),
		Action:     Action(r.Action),
		LogLevel:   LogLevel(r.LogLevel),
		Message:    r.Message,
		Details:    r.Details,
		UserID:     r.UserID,
		UserEmail:  r.UserEmail,
		EntityID:   r.EntityID,
		EntityType: r.EntityType,
		IPAddress:  r.IPAddress,
		UserAgent:  r.UserAgent,
		Source:     r.Source,
		Successful: true,
		Timestamp:  now,
	}
	if e.LogLevel == "" {
		e.LogLevel = LevelInfo
	}
	if r.Successful != nil {
		e.Successful = *r.Successful
	}
	if r.Timestamp != nil && !r.Timestamp.IsZero() {
		e.Timestamp = r.Timestamp.UTC()
	}
	return e
}

// Validate runs the record invariants over the candidate and reports every
// offending field in a single validation error.
func (r *CreateEventRequest) Validate(now time.Time) error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	res := r.ToEvent(now).Validate()
	if res.Valid() {
		return nil
	}
	return dErrors.New(dErrors.CodeValidation, strings.Join(res.Errors, "; ")).
		WithFields(res.Fields...)
}
