package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corpsite/internal/contact/models"
	"corpsite/pkg/platform/audit"
	auditmemory "corpsite/pkg/platform/audit/store/memory"
)

func testSubmission() *models.Submission {
	now := time.Date(2026, 4, 20, 14, 0, 0, 0, time.UTC)
	return &models.Submission{
		ID:        "sub-123",
		Name:      "",
		Email:     "ada.lovelace@example.com",
		Message:   "Tom &amp; Jerry asked about pricing",
		IPHash:    "iphash",
		CreatedAt: now,
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, "team@example.com", "noreply@example.com")
	require.Error(t, err)

	auditor, err := audit.New(auditmemory.NewInMemoryStore())
	require.NoError(t, err)
	_, err = New(auditor, "", "noreply@example.com")
	require.Error(t, err)
}

func TestCompose(t *testing.T) {
	auditor, err := audit.New(auditmemory.NewInMemoryStore())
	require.NoError(t, err)
	n, err := New(auditor, "team@example.com", "noreply@example.com")
	require.NoError(t, err)

	msg := n.Compose(testSubmission())

	assert.Equal(t, "New Contact Form Submission - sub-123", msg.Subject)
	assert.Equal(t, "team@example.com", msg.To)
	assert.Equal(t, "noreply@example.com", msg.From)
	assert.Equal(t, "ada.lovelace@example.com", msg.ReplyTo)
	assert.Contains(t, msg.Body, "From: Ada Lovelace <ada.lovelace@example.com>")
	assert.Contains(t, msg.Body, "Tom & Jerry asked about pricing")
}

func TestNotify_AuditsWithoutLoggingContent(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	audits := auditmemory.NewInMemoryStore()
	auditor, err := audit.New(audits, audit.WithLogger(logger))
	require.NoError(t, err)
	n, err := New(auditor, "team@example.com", "noreply@example.com", WithLogger(logger))
	require.NoError(t, err)

	n.Notify(context.Background(), testSubmission())

	events, err := audits.ListByType(context.Background(), audit.EventNotificationSent)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "sub-123", events[0].SubmissionID)
	assert.Equal(t, "iphash", events[0].IPHash)
	assert.Equal(t, "team@example.com", events[0].Payload["recipient"])
	assert.Equal(t, "example.com", events[0].Payload["sender_domain"])

	assert.NotContains(t, logs.String(), "ada.lovelace@example.com")
	assert.NotContains(t, logs.String(), "pricing")
}
