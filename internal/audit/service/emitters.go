package service

import (
	"context"
	"maps"

	"audittrail/internal/audit/models"
)

// LogSystemEvent records an operational event in the same ledger as business
// events, so the service's own activity is queryable alongside everything
// else. Sugar over Record with action SYSTEM_EVENT at INFO.
func (s *AuditService) LogSystemEvent(ctx context.Context, service models.Service, message string, details map[string]any) (models.Event, error) {
	return s.Record(ctx, &models.CreateEventRequest{
		Service:  string(service),
		Action:   string(models.ActionSystemEvent),
		LogLevel: string(models.LevelInfo),
		Message:  message,
		Details:  details,
		Source:   "system",
	})
}

// LogErrorEvent records a failure in the ledger. Sugar over Record with
// action SYSTEM_EVENT at ERROR and successful=false. Overlong error text is
// truncated in the message and preserved verbatim in details.
func (s *AuditService) LogErrorEvent(ctx context.Context, service models.Service, failure error, details map[string]any) (models.Event, error) {
	message := "internal error"
	if failure != nil {
		message = failure.Error()
		if runes := []rune(message); len(runes) > models.MaxMessageLength {
			// Copy before annotating so the caller's map is untouched.
			details = maps.Clone(details)
			if details == nil {
				details = make(map[string]any, 1)
			}
			details["error"] = message
			// Truncate by rune so a multibyte character is never split.
			message = string(runes[:models.MaxMessageLength])
		}
	}

	unsuccessful := false
	return s.Record(ctx, &models.CreateEventRequest{
		Service:    string(service),
		Action:     string(models.ActionSystemEvent),
		LogLevel:   string(models.LevelError),
		Message:    message,
		Details:    details,
		Source:     "system",
		Successful: &unsuccessful,
	})
}
