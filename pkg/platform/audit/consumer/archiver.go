// Package consumer copies audit events from the Kafka topic into a durable
// store (the SQLite audit_logs table).
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "corpsite/pkg/platform/audit"
)

const defaultRetryDelay = 2 * time.Second

// Archiver consumes the audit topic with at-least-once delivery: offsets are
// committed only after the store accepted every record of a poll.
type Archiver struct {
	client     *kgo.Client
	store      audit.Store
	logger     *slog.Logger
	retryDelay time.Duration
}

type Option func(*Archiver)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Archiver) {
		a.logger = logger
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(a *Archiver) {
		if d > 0 {
			a.retryDelay = d
		}
	}
}

func NewArchiver(client *kgo.Client, store audit.Store, opts ...Option) *Archiver {
	a := &Archiver{
		client:     client,
		store:      store,
		logger:     slog.Default(),
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run polls until ctx is done or the client is closed.
func (a *Archiver) Run(ctx context.Context) error {
	for {
		fetches := a.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			a.logger.WarnContext(ctx, "audit fetch failed",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var stopped bool
		fetches.EachRecord(func(r *kgo.Record) {
			if stopped {
				return
			}
			if err := a.Handle(ctx, r); err != nil {
				stopped = true
			}
		})
		if stopped {
			return nil
		}

		if err := a.client.CommitUncommittedOffsets(ctx); err != nil {
			a.logger.WarnContext(ctx, "audit offset commit failed", "error", err)
		}
	}
}

// Handle stores one record, retrying until the store accepts it or ctx is
// done. Records that do not decode to an event are logged and skipped.
func (a *Archiver) Handle(ctx context.Context, r *kgo.Record) error {
	var event audit.Event
	if err := json.Unmarshal(r.Value, &event); err != nil || event.ID == "" {
		a.logger.WarnContext(ctx, "skipping malformed audit record",
			"topic", r.Topic,
			"partition", r.Partition,
			"offset", r.Offset,
			"error", err,
		)
		return nil
	}

	for {
		err := a.store.Append(ctx, event)
		if err == nil {
			return nil
		}
		a.logger.WarnContext(ctx, "archiving audit event failed, retrying",
			"event_id", event.ID,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.retryDelay):
		}
	}
}
