// Package service runs the contact submission pipeline and the data subject
// requests (export and erasure) against a submission store.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"corpsite/internal/contact/models"
	"corpsite/internal/contact/privacy"
	"corpsite/internal/contact/sanitize"
	"corpsite/internal/contact/validation"
	"corpsite/internal/platform/metrics"
	rlmodels "corpsite/internal/ratelimit/models"
	"corpsite/internal/retention"
	"corpsite/pkg/platform/audit"
	"corpsite/pkg/requestcontext"
)

const tracerName = "corpsite/internal/contact/service"

// Store persists submissions.
type Store interface {
	Save(ctx context.Context, sub *models.Submission) (string, error)
	FindByEmail(ctx context.Context, email string) ([]*models.Submission, error)
	Delete(ctx context.Context, ids []string) (int, error)
}

// Limiter admits submissions per hashed client identifier.
type Limiter interface {
	Allow(ctx context.Context, identifier string) (*rlmodels.RateLimitResult, error)
}

type Auditor interface {
	Log(ctx context.Context, eventType audit.EventType, payload map[string]any, opts ...audit.EventOption) audit.Event
}

type Service struct {
	store   Store
	limiter Limiter
	auditor Auditor
	hasher  *privacy.Hasher
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

func New(store Store, limiter Limiter, auditor Auditor, hasher *privacy.Hasher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("submission store is required")
	}
	if limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	if auditor == nil {
		return nil, errors.New("auditor is required")
	}
	if hasher == nil {
		return nil, errors.New("hasher is required")
	}
	svc := &Service{
		store:   store,
		limiter: limiter,
		auditor: auditor,
		hasher:  hasher,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ProcessSubmission validates, rate limits, sanitizes and stores one contact
// form. Besides the attempt event, exactly one outcome event is audited on
// every path.
func (s *Service) ProcessSubmission(ctx context.Context, req models.SubmissionRequest) (result *models.SubmissionResult, err error) {
	ctx, span := s.tracer.Start(ctx, "contact.ProcessSubmission")
	defer func() { s.finish(span, "submission", err) }()

	var ipHash string
	defer s.recoverPanic(ctx, "submission", &err, func() audit.EventOption { return audit.WithIPHash(ipHash) })

	ipHash = s.hasher.HashIP(req.IPAddress)

	email := strings.TrimSpace(req.Email)
	attempt := map[string]any{
		"user_agent":     privacy.DescribeUserAgent(req.UserAgent),
		"has_csrf_token": req.CSRFToken != "",
	}
	if domain := privacy.EmailDomain(email); domain != "" {
		attempt["email_domain"] = domain
	}
	s.auditor.Log(ctx, audit.EventAttempt, attempt, audit.WithIPHash(ipHash))

	if !validation.CSRFToken(req.CSRFToken) {
		s.auditor.Log(ctx, audit.EventValidationError, map[string]any{
			"reasons": []string{"csrf_format"},
			"fields":  []string{"csrf_token"},
		}, audit.WithIPHash(ipHash))
		return nil, validationError("csrf_format")
	}

	decision, err := s.limiter.Allow(ctx, ipHash)
	if err != nil {
		s.auditor.Log(ctx, audit.EventError, map[string]any{"error_kind": "rate_limiter"}, audit.WithIPHash(ipHash))
		return nil, internalError("rate_limiter", err)
	}
	if !decision.Allowed {
		s.auditor.Log(ctx, audit.EventRateLimited, map[string]any{
			"limit":               decision.Limit,
			"retry_after_seconds": decision.RetryAfterSeconds(),
		}, audit.WithIPHash(ipHash))
		return nil, &Error{Kind: KindRateLimited, Reason: "rate_limited", RetryAfter: decision.RetryAfter}
	}

	input := validation.Input{
		Name:    strings.TrimSpace(req.Name),
		Email:   email,
		Message: strings.TrimSpace(req.Message),
		Consent: req.ConsentValue(),
	}
	checked := validation.Validate(input)
	if !checked.Valid {
		reasons := make([]string, 0, len(checked.Issues))
		for _, issue := range checked.Issues {
			reasons = append(reasons, issue.Reason)
		}
		s.auditor.Log(ctx, audit.EventValidationError, map[string]any{
			"reasons": reasons,
			"fields":  checked.Fields(),
		}, audit.WithIPHash(ipHash))
		if checked.OnlyConsent() {
			return nil, validationError(validation.ReasonConsent)
		}
		return nil, validationError(checked.Issues[0].Reason)
	}

	message := sanitize.Text(input.Message)
	if message == "" {
		s.auditor.Log(ctx, audit.EventValidationError, map[string]any{
			"reasons": []string{"empty_after_sanitize"},
			"fields":  []string{"message"},
		}, audit.WithIPHash(ipHash))
		return nil, validationError("empty_after_sanitize")
	}

	now := requestcontext.Now(ctx).UTC()
	expiry, _ := retention.Expiry(retention.ContactForms, now)
	record, err := models.NewSubmission(
		sanitize.Text(input.Name),
		privacy.NormalizeEmail(input.Email),
		message,
		*input.Consent,
		ipHash,
		privacy.TruncateUserAgent(req.UserAgent),
		now,
		expiry,
	)
	if err != nil {
		s.auditor.Log(ctx, audit.EventValidationError, map[string]any{
			"reasons": []string{validation.ReasonConsent},
			"fields":  []string{"consent"},
		}, audit.WithIPHash(ipHash))
		return nil, validationError(validation.ReasonConsent)
	}

	id, err := s.store.Save(ctx, record)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to store submission", "error", err)
		s.auditor.Log(ctx, audit.EventError, map[string]any{"error_kind": "storage"}, audit.WithIPHash(ipHash))
		return nil, internalError("storage", err)
	}
	record.ID = id

	s.auditor.Log(ctx, audit.EventSuccess, map[string]any{
		"retention_expiry": expiry.Format(time.RFC3339),
	}, audit.WithIPHash(ipHash), audit.WithSubmissionID(id))

	return &models.SubmissionResult{
		SubmissionID:    id,
		Message:         MessageSubmitted,
		RetentionExpiry: expiry,
		Record:          record,
	}, nil
}

// ExportUserData returns every stored submission of the data subject.
func (s *Service) ExportUserData(ctx context.Context, email string) (result *models.ExportResult, err error) {
	ctx, span := s.tracer.Start(ctx, "contact.ExportUserData")
	defer func() { s.finish(span, "export", err) }()

	var subject string
	defer s.recoverPanic(ctx, "export", &err, func() audit.EventOption { return audit.WithUserID(subject) })

	email = privacy.NormalizeEmail(email)
	subject = s.hasher.HashIdentifier(email)

	s.auditor.Log(ctx, audit.EventExportRequest, map[string]any{
		"email_domain": privacy.EmailDomain(email),
	}, audit.WithUserID(subject))

	if !validation.Email(email) {
		s.auditor.Log(ctx, audit.EventValidationError, map[string]any{
			"reasons": []string{validation.ReasonFormat},
			"fields":  []string{"email"},
		}, audit.WithUserID(subject))
		return nil, validationError(validation.ReasonFormat)
	}

	records, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to look up submissions for export", "error", err)
		s.auditor.Log(ctx, audit.EventError, map[string]any{"error_kind": "storage"}, audit.WithUserID(subject))
		return nil, internalError("storage", err)
	}
	if records == nil {
		records = []*models.Submission{}
	}

	exportID := uuid.NewString()
	s.metrics.AddExported(len(records))
	s.auditor.Log(ctx, audit.EventExportSuccess, map[string]any{
		"export_id":    exportID,
		"record_count": len(records),
	}, audit.WithUserID(subject))

	return &models.ExportResult{
		ExportID: exportID,
		Format:   "json",
		Data:     records,
		Message:  MessageExport,
	}, nil
}

// ProcessErasureRequest deletes every stored submission of the data subject.
// Audit events are kept; they carry no raw personal data.
func (s *Service) ProcessErasureRequest(ctx context.Context, email string) (result *models.ErasureResult, err error) {
	ctx, span := s.tracer.Start(ctx, "contact.ProcessErasureRequest")
	defer func() { s.finish(span, "erasure", err) }()

	var subject string
	defer s.recoverPanic(ctx, "erasure", &err, func() audit.EventOption { return audit.WithUserID(subject) })

	email = privacy.NormalizeEmail(email)
	subject = s.hasher.HashIdentifier(email)

	s.auditor.Log(ctx, audit.EventErasureRequest, map[string]any{
		"email_domain": privacy.EmailDomain(email),
	}, audit.WithUserID(subject))

	if !validation.Email(email) {
		s.auditor.Log(ctx, audit.EventValidationError, map[string]any{
			"reasons": []string{validation.ReasonFormat},
			"fields":  []string{"email"},
		}, audit.WithUserID(subject))
		return nil, validationError(validation.ReasonFormat)
	}

	records, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to look up submissions for erasure", "error", err)
		s.auditor.Log(ctx, audit.EventError, map[string]any{"error_kind": "storage"}, audit.WithUserID(subject))
		return nil, internalError("storage", err)
	}

	deleted := 0
	if len(records) > 0 {
		ids := make([]string, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.ID)
		}
		deleted, err = s.store.Delete(ctx, ids)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to delete submissions", "error", err)
			s.auditor.Log(ctx, audit.EventError, map[string]any{"error_kind": "storage"}, audit.WithUserID(subject))
			return nil, internalError("storage", err)
		}
	}

	deletionID := uuid.NewString()
	s.metrics.AddErased(deleted)
	s.auditor.Log(ctx, audit.EventErasureSuccess, map[string]any{
		"deletion_id":   deletionID,
		"deleted_count": deleted,
	}, audit.WithUserID(subject))

	return &models.ErasureResult{
		DeletionID:   deletionID,
		DeletedCount: deleted,
		Message:      MessageErasure,
	}, nil
}

// recoverPanic turns a panic into an audited internal error. It must be
// deferred directly. subject is read after the panic, so identifiers hashed
// later in the operation still reach the error event.
func (s *Service) recoverPanic(ctx context.Context, operation string, errp *error, subject func() audit.EventOption) {
	r := recover()
	if r == nil {
		return
	}
	s.logger.ErrorContext(ctx, "panic in contact pipeline",
		"operation", operation,
		"panic", fmt.Sprint(r),
	)
	s.auditor.Log(ctx, audit.EventError, map[string]any{"error_kind": "panic"}, subject())
	*errp = internalError("panic", fmt.Errorf("panic: %v", r))
}

func (s *Service) finish(span trace.Span, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
		span.SetStatus(codes.Error, outcome)
	}
	if operation == "submission" {
		s.metrics.IncSubmission(outcome)
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	span.End()
}
