// Package sqlite persists audit events in the audit_logs table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	audit "corpsite/pkg/platform/audit"
	txcontext "corpsite/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Name() string {
	return "sqlite"
}

// eventData is the event_data column: the payload plus correlation fields the
// table has no column for.
type eventData struct {
	Category  string         `json:"category"`
	RequestID string         `json:"request_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Append inserts the event. Re-inserting an existing id is a no-op, so events
// replayed from the archive topic are stored once.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	data, err := json.Marshal(eventData{
		Category:  string(event.Category),
		RequestID: event.RequestID,
		Data:      event.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event data: %w", err)
	}

	query := `
		INSERT INTO audit_logs (id, event_type, timestamp, user_id, ip_hash, submission_id, event_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	ts := event.Timestamp.UnixMilli()
	_, err = txcontext.Execer(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		string(event.Type),
		ts,
		nullString(event.UserID),
		nullString(event.IPHash),
		nullString(event.SubmissionID),
		string(data),
		ts,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByType returns events of one type, oldest first.
func (s *Store) ListByType(ctx context.Context, eventType audit.EventType) ([]audit.Event, error) {
	query := `
		SELECT id, event_type, timestamp, user_id, ip_hash, submission_id, event_data
		FROM audit_logs
		WHERE event_type = ?
		ORDER BY timestamp ASC, id ASC
	`
	rows, err := txcontext.Execer(ctx, s.db).QueryContext(ctx, query, string(eventType))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e                            audit.Event
			typ, data                    string
			ts                           int64
			userID, ipHash, submissionID sql.NullString
		)
		if err := rows.Scan(&e.ID, &typ, &ts, &userID, &ipHash, &submissionID, &data); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var decoded eventData
		if err := json.Unmarshal([]byte(data), &decoded); err != nil {
			return nil, fmt.Errorf("decode audit event %s: %w", e.ID, err)
		}
		e.Type = audit.EventType(typ)
		e.Timestamp = time.UnixMilli(ts).UTC()
		e.UserID = userID.String
		e.IPHash = ipHash.String
		e.SubmissionID = submissionID.String
		e.Category = audit.EventCategory(decoded.Category)
		e.RequestID = decoded.RequestID
		e.Payload = decoded.Data
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := txcontext.Execer(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return n, nil
}

// PurgeExpired deletes events created at or before cutoff and returns how many.
func (s *Store) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := txcontext.Execer(ctx, s.db).ExecContext(ctx,
		`DELETE FROM audit_logs WHERE created_at <= ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	return int(n), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
