// Package audit records compliance-relevant events of the contact pipeline.
//
// The Logger writes each event to the structured log and appends it
// synchronously to a Store. A failed append never fails the caller: it is
// logged at WARN and counted.
package audit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"corpsite/pkg/requestcontext"
)

// FailureRecorder counts failed appends per sink.
type FailureRecorder interface {
	IncAuditFailure(sink string)
}

type Logger struct {
	store   Store
	logger  *slog.Logger
	metrics FailureRecorder
}

type Option func(*Logger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) {
		l.logger = logger
	}
}

func WithMetrics(m FailureRecorder) Option {
	return func(l *Logger) {
		l.metrics = m
	}
}

func New(store Store, opts ...Option) (*Logger, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	l := &Logger{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// EventOption sets optional correlation fields on an Event.
type EventOption func(*Event)

func WithIPHash(hash string) EventOption {
	return func(e *Event) {
		e.IPHash = hash
	}
}

func WithSubmissionID(id string) EventOption {
	return func(e *Event) {
		e.SubmissionID = id
	}
}

func WithUserID(id string) EventOption {
	return func(e *Event) {
		e.UserID = id
	}
}

// Log records one event and returns it as appended.
func (l *Logger) Log(ctx context.Context, eventType EventType, payload map[string]any, opts ...EventOption) Event {
	event := Event{
		ID:        uuid.NewString(),
		Timestamp: requestcontext.Now(ctx).UTC(),
		Type:      eventType,
		Category:  eventType.Category(),
		RequestID: requestcontext.RequestID(ctx),
		Payload:   payload,
	}
	for _, opt := range opts {
		opt(&event)
	}
	if !eventType.Known() {
		l.logger.WarnContext(ctx, "unknown audit event type", "event_type", string(eventType))
	}

	l.logger.InfoContext(ctx, "audit event",
		"event_id", event.ID,
		"event_type", string(event.Type),
		"category", string(event.Category),
		"ip_hash", event.IPHash,
		"submission_id", event.SubmissionID,
		"request_id", event.RequestID,
		"event_data", event.Payload,
	)

	if err := l.store.Append(ctx, event); err != nil {
		l.logger.WarnContext(ctx, "audit append failed",
			"event_id", event.ID,
			"event_type", string(event.Type),
			"error", err,
		)
		if l.metrics != nil {
			for _, sink := range failedSinks(err) {
				l.metrics.IncAuditFailure(sink)
			}
		}
	}
	return event
}
