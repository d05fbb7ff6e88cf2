package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose. Sinks use
// it as a routing key.
type EventCategory string

const (
	// CategoryCompliance covers data-subject requests and stored personal data.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers rejected or suspicious traffic.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

type EventType string

const (
	// Submission pipeline
	EventAttempt         EventType = "attempt"
	EventSuccess         EventType = "success"
	EventValidationError EventType = "validation_error"
	EventRateLimited     EventType = "rate_limited"
	EventError           EventType = "error"

	// Data subject requests
	EventExportRequest  EventType = "export_request"
	EventExportSuccess  EventType = "export_success"
	EventErasureRequest EventType = "erasure_request"
	EventErasureSuccess EventType = "erasure_success"

	// Side effects
	EventNotificationSent EventType = "email_notification_sent"
	EventRetentionSweep   EventType = "retention_sweep"
)

var eventCategories = map[EventType]EventCategory{
	EventSuccess:          CategoryCompliance,
	EventExportRequest:    CategoryCompliance,
	EventExportSuccess:    CategoryCompliance,
	EventErasureRequest:   CategoryCompliance,
	EventErasureSuccess:   CategoryCompliance,
	EventRetentionSweep:   CategoryCompliance,
	EventValidationError:  CategorySecurity,
	EventRateLimited:      CategorySecurity,
	EventError:            CategoryOperations,
	EventAttempt:          CategoryOperations,
	EventNotificationSent: CategoryOperations,
}

// Category returns the EventCategory for this event type.
// Unknown types default to CategoryOperations.
func (t EventType) Category() EventCategory {
	if cat, ok := eventCategories[t]; ok {
		return cat
	}
	return CategoryOperations
}

// Known reports whether t is one of the enumerated event types.
func (t EventType) Known() bool {
	_, ok := eventCategories[t]
	return ok
}

// Event is one append-only audit record. Payload must already be scrubbed:
// hashes and email domains only, never a raw IP, email address or message.
type Event struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Type         EventType      `json:"event_type"`
	Category     EventCategory  `json:"category"`
	UserID       string         `json:"user_id,omitempty"`
	IPHash       string         `json:"ip_hash,omitempty"`
	SubmissionID string         `json:"submission_id,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
	Payload      map[string]any `json:"event_data,omitempty"`
}

// Store appends events to a durable sink. Implementations must be safe for
// concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Sink is a Store with a name used in logs and metrics.
type Sink interface {
	Store
	Name() string
}
