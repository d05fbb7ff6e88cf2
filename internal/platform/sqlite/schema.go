package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
)

// Expected schema objects, checked by Verify.
var (
	expectedTables  = []string{"audit_logs", "contact_submissions", "schema_migrations"}
	expectedIndexes = []string{
		"idx_audit_logs_event_type",
		"idx_audit_logs_timestamp",
		"idx_contact_submissions_created",
		"idx_contact_submissions_email",
		"idx_contact_submissions_retention",
	}
	expectedViews = []string{"expired_submissions"}
)

// Report describes what Verify found.
type Report struct {
	Tables      []string
	Indexes     []string
	Views       []string
	Missing     []string
	Submissions int
	AuditEvents int
}

// OK reports whether every expected object exists.
func (r Report) OK() bool { return len(r.Missing) == 0 }

// Verify inspects sqlite_master for the expected tables, indexes and views and
// counts rows in the two data tables.
func Verify(ctx context.Context, db *sql.DB) (Report, error) {
	var r Report
	rows, err := db.QueryContext(ctx,
		`SELECT type, name FROM sqlite_master WHERE type IN ('table','index','view') AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return r, fmt.Errorf("list schema objects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var typ, name string
		if err := rows.Scan(&typ, &name); err != nil {
			return r, fmt.Errorf("scan schema object: %w", err)
		}
		switch typ {
		case "table":
			r.Tables = append(r.Tables, name)
		case "index":
			r.Indexes = append(r.Indexes, name)
		case "view":
			r.Views = append(r.Views, name)
		}
	}
	if err := rows.Err(); err != nil {
		return r, fmt.Errorf("iterate schema objects: %w", err)
	}

	r.Missing = append(r.Missing, missing(expectedTables, r.Tables)...)
	r.Missing = append(r.Missing, missing(expectedIndexes, r.Indexes)...)
	r.Missing = append(r.Missing, missing(expectedViews, r.Views)...)

	if slices.Contains(r.Tables, "contact_submissions") {
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contact_submissions`).Scan(&r.Submissions); err != nil {
			return r, fmt.Errorf("count submissions: %w", err)
		}
	}
	if slices.Contains(r.Tables, "audit_logs") {
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`).Scan(&r.AuditEvents); err != nil {
			return r, fmt.Errorf("count audit events: %w", err)
		}
	}
	return r, nil
}

// Reset drops every schema object and reapplies the migrations.
// All submissions and audit events are lost.
func Reset(ctx context.Context, db *sql.DB) error {
	drops := []string{
		`DROP VIEW IF EXISTS expired_submissions`,
		`DROP TABLE IF EXISTS contact_submissions`,
		`DROP TABLE IF EXISTS audit_logs`,
		`DROP TABLE IF EXISTS schema_migrations`,
	}
	for _, stmt := range drops {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	return Migrate(ctx, db)
}

func missing(want, have []string) []string {
	var out []string
	for _, w := range want {
		if !slices.Contains(have, w) {
			out = append(out, w)
		}
	}
	return out
}
