// Package sqlite stores contact submissions in the contact_submissions table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"corpsite/internal/contact/models"
	"corpsite/pkg/platform/sentinel"
	txcontext "corpsite/pkg/platform/tx"
)

// deleteBatch stays well below SQLite's bound parameter limit.
const deleteBatch = 500

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save inserts sub. Records without consent are refused before the database
// CHECK constraint sees them.
func (s *Store) Save(ctx context.Context, sub *models.Submission) (string, error) {
	if !sub.ConsentGiven {
		return "", fmt.Errorf("save submission without consent: %w", sentinel.ErrInvalidInput)
	}
	id := sub.ID
	if id == "" {
		id = uuid.NewString()
	}
	query := `
		INSERT INTO contact_submissions (
			id, name, email, message, timestamp, consent_given, ip_address_hash,
			user_agent, created_at, updated_at, retention_expiry
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := txcontext.Execer(ctx, s.db).ExecContext(ctx, query,
		id,
		sub.Name,
		sub.Email,
		sub.Message,
		sub.Timestamp.UnixMilli(),
		boolToInt(sub.ConsentGiven),
		sub.IPHash,
		sub.UserAgent,
		sub.CreatedAt.UnixMilli(),
		sub.UpdatedAt.UnixMilli(),
		sub.RetentionExpiry.UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("insert submission: %w", err)
	}
	return id, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) ([]*models.Submission, error) {
	query := `
		SELECT id, name, email, message, timestamp, consent_given, ip_address_hash,
			user_agent, created_at, updated_at, retention_expiry
		FROM contact_submissions
		WHERE email = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := txcontext.Execer(ctx, s.db).QueryContext(ctx, query, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("query submissions by email: %w", err)
	}
	defer rows.Close()

	var out []*models.Submission
	for rows.Next() {
		var (
			sub                                        models.Submission
			consent                                    int
			timestamp, createdAt, updatedAt, expiresAt int64
		)
		if err := rows.Scan(
			&sub.ID, &sub.Name, &sub.Email, &sub.Message, &timestamp, &consent,
			&sub.IPHash, &sub.UserAgent, &createdAt, &updatedAt, &expiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.ConsentGiven = consent == 1
		sub.Timestamp = time.UnixMilli(timestamp).UTC()
		sub.CreatedAt = time.UnixMilli(createdAt).UTC()
		sub.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		sub.RetentionExpiry = time.UnixMilli(expiresAt).UTC()
		out = append(out, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

// Delete removes the given ids in one transaction and returns how many rows
// existed.
func (s *Store) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	deleted := 0
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		for start := 0; start < len(ids); start += deleteBatch {
			batch := ids[start:min(start+deleteBatch, len(ids))]
			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
			args := make([]any, len(batch))
			for i, id := range batch {
				args[i] = id
			}
			res, err := txcontext.Execer(ctx, s.db).ExecContext(ctx,
				"DELETE FROM contact_submissions WHERE id IN ("+placeholders+")", args...)
			if err != nil {
				return fmt.Errorf("delete submissions: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("delete submissions: %w", err)
			}
			deleted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// PurgeExpired deletes submissions created at or before cutoff.
func (s *Store) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := txcontext.Execer(ctx, s.db).ExecContext(ctx,
		`DELETE FROM contact_submissions WHERE created_at <= ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge submissions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge submissions: %w", err)
	}
	return int(n), nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := txcontext.Execer(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM contact_submissions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
