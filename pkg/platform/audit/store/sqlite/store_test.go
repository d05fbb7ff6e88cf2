package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	platformsqlite "corpsite/internal/platform/sqlite"
	audit "corpsite/pkg/platform/audit"
	txcontext "corpsite/pkg/platform/tx"
)

type StoreSuite struct {
	suite.Suite
	db    *sql.DB
	store *Store
	ctx   context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	db, err := platformsqlite.Open(s.ctx, platformsqlite.Config{Path: uuid.NewString(), Memory: true})
	s.Require().NoError(err)
	s.db = db
	s.store = New(db)
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

func (s *StoreSuite) event(id string, typ audit.EventType, ts time.Time) audit.Event {
	return audit.Event{
		ID:        id,
		Timestamp: ts,
		Type:      typ,
		Category:  typ.Category(),
		IPHash:    "abc123",
		RequestID: "req-" + id,
		Payload:   map[string]any{"email_domain": "example.com"},
	}
}

func (s *StoreSuite) TestAppendAndList() {
	ts := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Append(s.ctx, s.event("e1", audit.EventAttempt, ts)))
	s.Require().NoError(s.store.Append(s.ctx, s.event("e2", audit.EventSuccess, ts.Add(time.Second))))

	events, err := s.store.ListByType(s.ctx, audit.EventAttempt)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	got := events[0]
	s.Equal("e1", got.ID)
	s.True(ts.Equal(got.Timestamp))
	s.Equal("abc123", got.IPHash)
	s.Empty(got.SubmissionID)
	s.Equal(audit.CategoryOperations, got.Category)
	s.Equal("req-e1", got.RequestID)
	s.Equal("example.com", got.Payload["email_domain"])
}

func (s *StoreSuite) TestAppendIsIdempotentOnID() {
	e := s.event("dup", audit.EventAttempt, time.Now())
	s.Require().NoError(s.store.Append(s.ctx, e))
	s.Require().NoError(s.store.Append(s.ctx, e))

	n, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *StoreSuite) TestPurgeExpired() {
	base := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Append(s.ctx, s.event("old", audit.EventAttempt, base)))
	s.Require().NoError(s.store.Append(s.ctx, s.event("new", audit.EventAttempt, base.AddDate(7, 0, 1))))

	purged, err := s.store.PurgeExpired(s.ctx, base.AddDate(7, 0, 0))
	s.Require().NoError(err)
	s.Equal(1, purged)

	events, err := s.store.ListByType(s.ctx, audit.EventAttempt)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("new", events[0].ID)
}

func (s *StoreSuite) TestAppendJoinsTransaction() {
	tx, err := s.db.BeginTx(s.ctx, nil)
	s.Require().NoError(err)
	ctx := txcontext.WithTx(s.ctx, tx)

	s.Require().NoError(s.store.Append(ctx, s.event("in-tx", audit.EventAttempt, time.Now())))
	s.Require().NoError(tx.Rollback())

	n, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

func TestStore_AppendWrapsDriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(errors.New("database is locked"))

	err = New(db).Append(context.Background(), audit.Event{ID: "x", Type: audit.EventError})
	if err == nil || err.Error() != "insert audit event: database is locked" {
		t.Fatalf("unexpected error %v", err)
	}
}
