// Package notify tells the communications team about new submissions. It
// composes the message and records that it was sent; delivery is not wired.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"corpsite/internal/contact/models"
	"corpsite/internal/contact/privacy"
	"corpsite/pkg/email"
	"corpsite/pkg/platform/audit"
)

type Auditor interface {
	Log(ctx context.Context, eventType audit.EventType, payload map[string]any, opts ...audit.EventOption) audit.Event
}

type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Body    string
}

type Notifier struct {
	auditor   Auditor
	logger    *slog.Logger
	recipient string
	sender    string
}

type Option func(*Notifier)

func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

func New(auditor Auditor, recipient, sender string, opts ...Option) (*Notifier, error) {
	if auditor == nil {
		return nil, errors.New("auditor is required")
	}
	if recipient == "" {
		return nil, errors.New("recipient is required")
	}
	n := &Notifier{
		auditor:   auditor,
		logger:    slog.Default(),
		recipient: recipient,
		sender:    sender,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Compose builds the plain-text notification for a stored submission.
func (n *Notifier) Compose(sub *models.Submission) Message {
	message := html.UnescapeString(sub.Message)
	var body strings.Builder
	body.WriteString("New Contact Form Submission\n\n")
	fmt.Fprintf(&body, "Submission ID: %s\n", sub.ID)
	fmt.Fprintf(&body, "From: %s <%s>\n\n", email.DisplayName(html.UnescapeString(sub.Name), sub.Email), sub.Email)
	body.WriteString("Message:\n")
	body.WriteString(message)
	body.WriteString("\n\n---\nThis message was submitted through the website contact form.\n")
	body.WriteString("Please respond directly to the sender's email address.\n")

	return Message{
		From:    n.sender,
		To:      n.recipient,
		ReplyTo: sub.Email,
		Subject: "New Contact Form Submission - " + sub.ID,
		Body:    body.String(),
	}
}

// Notify composes the message and records it as sent. The log line carries
// no sender address or message text.
func (n *Notifier) Notify(ctx context.Context, sub *models.Submission) Message {
	msg := n.Compose(sub)
	n.logger.InfoContext(ctx, "contact notification sent",
		"submission_id", sub.ID,
		"recipient", n.recipient,
		"subject", msg.Subject,
	)
	n.auditor.Log(ctx, audit.EventNotificationSent, map[string]any{
		"recipient":     n.recipient,
		"sender_domain": privacy.EmailDomain(sub.Email),
	}, audit.WithSubmissionID(sub.ID), audit.WithIPHash(sub.IPHash))
	return msg
}
