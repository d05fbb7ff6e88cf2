package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"corpsite/internal/contact/models"
	"corpsite/internal/contact/privacy"
	"corpsite/internal/contact/service/mocks"
	"corpsite/internal/contact/store/memory"
	"corpsite/internal/platform/metrics"
	rlmodels "corpsite/internal/ratelimit/models"
	ratelimit "corpsite/internal/ratelimit/service"
	"corpsite/internal/ratelimit/store/bucket"
	"corpsite/pkg/platform/audit"
	auditmemory "corpsite/pkg/platform/audit/store/memory"
	"corpsite/pkg/requestcontext"
)

const validToken = "a1B2c3D4e5F6g7H8i9J0k1L2m3N4o5P6"

type PipelineSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	store   *memory.InMemoryStore
	audits  *auditmemory.InMemoryStore
	spans   *tracetest.SpanRecorder
	metrics *metrics.Metrics
	svc     *Service
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.now = time.Date(2026, 4, 20, 14, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = memory.New()
	s.audits = auditmemory.NewInMemoryStore()
	s.spans = tracetest.NewSpanRecorder()
	s.metrics = metrics.New(prometheus.NewRegistry())

	limiter, err := ratelimit.New(bucket.NewInMemoryBucketStore(), ratelimit.WithLogger(logger))
	s.Require().NoError(err)
	auditor, err := audit.New(s.audits, audit.WithLogger(logger))
	s.Require().NoError(err)

	svc, err := New(s.store, limiter, auditor, privacy.NewHasher("test-salt"),
		WithLogger(logger),
		WithMetrics(s.metrics),
		WithTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(s.spans))),
	)
	s.Require().NoError(err)
	s.svc = svc
}

func boolPtr(b bool) *bool { return &b }

func (s *PipelineSuite) request() models.SubmissionRequest {
	return models.SubmissionRequest{
		Name:      "John",
		Email:     "john@example.com",
		Message:   "Hi",
		Consent:   boolPtr(true),
		CSRFToken: validToken,
		IPAddress: "203.0.113.7",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	}
}

func (s *PipelineSuite) eventTypes() []audit.EventType {
	events, err := s.audits.ListAll(s.ctx)
	s.Require().NoError(err)
	types := make([]audit.EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func (s *PipelineSuite) stored(email string) []*models.Submission {
	found, err := s.store.FindByEmail(s.ctx, email)
	s.Require().NoError(err)
	return found
}

func (s *PipelineSuite) TestNewRequiresDependencies() {
	hasher := privacy.NewHasher("x")
	_, err := New(nil, nil, nil, hasher)
	s.ErrorContains(err, "store")
	_, err = New(s.store, nil, nil, hasher)
	s.ErrorContains(err, "limiter")
}

func (s *PipelineSuite) TestSuccessfulSubmission() {
	result, err := s.svc.ProcessSubmission(s.ctx, s.request())
	s.Require().NoError(err)

	s.NotEmpty(result.SubmissionID)
	s.Equal(MessageSubmitted, result.Message)
	s.Equal(s.now.Add(5*365*24*time.Hour), result.RetentionExpiry)
	s.Equal([]audit.EventType{audit.EventAttempt, audit.EventSuccess}, s.eventTypes())

	records := s.stored("john@example.com")
	s.Require().Len(records, 1)
	s.Equal(result.SubmissionID, records[0].ID)
	s.True(records[0].ConsentGiven)
	s.NotEqual("203.0.113.7", records[0].IPHash)
	s.Len(records[0].IPHash, 64)

	successes, _ := s.audits.ListByType(s.ctx, audit.EventSuccess)
	s.Equal(result.SubmissionID, successes[0].SubmissionID)
	s.Equal(records[0].IPHash, successes[0].IPHash)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.Submissions.WithLabelValues("success")))
}

func (s *PipelineSuite) TestAttemptPayloadIsScrubbed() {
	req := s.request()
	req.Message = "My phone number is 555-0100"
	_, err := s.svc.ProcessSubmission(s.ctx, req)
	s.Require().NoError(err)

	events, _ := s.audits.ListAll(s.ctx)
	for _, e := range events {
		for key, value := range e.Payload {
			text := strings.ToLower(strings.TrimSpace(toString(value)))
			s.NotContains(text, "john@example.com", key)
			s.NotContains(text, "203.0.113.7", key)
			s.NotContains(text, "555-0100", key)
		}
	}
	attempt := events[0]
	s.Equal("example.com", attempt.Payload["email_domain"])
	s.Equal(true, attempt.Payload["has_csrf_token"])
	agent, ok := attempt.Payload["user_agent"].(privacy.AgentSummary)
	s.Require().True(ok)
	s.Contains(agent.Browser, "Chrome")
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	default:
		return ""
	}
}

func (s *PipelineSuite) TestStoresSanitizedNormalizedRecord() {
	req := s.request()
	req.Name = "  Jane Doe "
	req.Email = " Jane.Doe@Example.COM "
	req.Message = "  Price is 5 > 3 for \"us\"  "
	_, err := s.svc.ProcessSubmission(s.ctx, req)
	s.Require().NoError(err)

	records := s.stored("jane.doe@example.com")
	s.Require().Len(records, 1)
	s.Equal("Jane Doe", records[0].Name)
	s.Equal("jane.doe@example.com", records[0].Email)
	s.Equal("Price is 5 &gt; 3 for &#34;us&#34;", records[0].Message)
}

func (s *PipelineSuite) TestUserAgentTruncatedOrUnknown() {
	req := s.request()
	req.UserAgent = ""
	_, err := s.svc.ProcessSubmission(s.ctx, req)
	s.Require().NoError(err)

	req = s.request()
	req.Email = "long@example.com"
	req.IPAddress = "198.51.100.1"
	req.UserAgent = strings.Repeat("x", 300)
	_, err = s.svc.ProcessSubmission(s.ctx, req)
	s.Require().NoError(err)

	s.Equal("unknown", s.stored("john@example.com")[0].UserAgent)
	s.Len(s.stored("long@example.com")[0].UserAgent, privacy.MaxUserAgentLength)
}

func (s *PipelineSuite) TestConsentFalseIsRejected() {
	req := s.request()
	req.Consent = boolPtr(false)

	result, err := s.svc.ProcessSubmission(s.ctx, req)
	s.Nil(result)
	s.Equal(KindValidation, KindOf(err))

	var pipelineErr *Error
	s.Require().ErrorAs(err, &pipelineErr)
	s.Equal(MessageInvalid, pipelineErr.PublicMessage())
	s.Equal("consent_missing", pipelineErr.Reason)

	s.Equal([]audit.EventType{audit.EventAttempt, audit.EventValidationError}, s.eventTypes())
	s.Empty(s.stored("john@example.com"))
}

func (s *PipelineSuite) TestConsentGivenSpellingAccepted() {
	req := s.request()
	req.Consent = nil
	req.ConsentGiven = boolPtr(true)
	_, err := s.svc.ProcessSubmission(s.ctx, req)
	s.NoError(err)
}

func (s *PipelineSuite) TestMissingFieldsReportedTogether() {
	req := s.request()
	req.Email = ""
	req.Message = "   "
	req.Consent = nil

	_, err := s.svc.ProcessSubmission(s.ctx, req)
	s.Equal(KindValidation, KindOf(err))

	failures, _ := s.audits.ListByType(s.ctx, audit.EventValidationError)
	s.Require().Len(failures, 1)
	s.ElementsMatch([]string{"email", "message", "consent"}, failures[0].Payload["fields"])
}

func (s *PipelineSuite) TestSuspiciousContentRejected() {
	for name, message := range map[string]string{
		"script":   "<script>alert(1)</script>",
		"sql":      "' OR '1'='1",
		"shell":    "hello; rm -rf /",
		"protocol": "click javascript:alert(1)",
		"handler":  "<img src=x onerror=alert(1)>",
		"union":    "1 UNION SELECT password FROM users",
	} {
		s.Run(name, func() {
			s.audits.Clear()
			req := s.request()
			req.Message = message
			req.IPAddress = "192.0.2." + name
			_, err := s.svc.ProcessSubmission(s.ctx, req)
			s.Equal(KindValidation, KindOf(err))
			failures, _ := s.audits.ListByType(s.ctx, audit.EventValidationError)
			s.Require().Len(failures, 1)
			s.Contains(failures[0].Payload["reasons"], "suspicious")
		})
	}
	s.Empty(s.stored("john@example.com"))
}

func (s *PipelineSuite) TestBadCSRFTokenRejectedBeforeRateLimit() {
	req := s.request()
	req.CSRFToken = "short"

	for range 10 {
		_, err := s.svc.ProcessSubmission(s.ctx, req)
		s.Equal(KindValidation, KindOf(err))
	}

	_, err := s.svc.ProcessSubmission(s.ctx, s.request())
	s.NoError(err, "format failures do not consume the rate limit")

	failures, _ := s.audits.ListByType(s.ctx, audit.EventValidationError)
	s.Len(failures, 10)
	s.Equal([]string{"csrf_format"}, failures[0].Payload["reasons"])
}

func (s *PipelineSuite) TestSixthRapidSubmissionIsRateLimited() {
	for i := range 5 {
		_, err := s.svc.ProcessSubmission(s.ctx, s.request())
		s.Require().NoError(err, "submission %d", i+1)
	}

	result, err := s.svc.ProcessSubmission(s.ctx, s.request())
	s.Nil(result)
	s.Equal(KindRateLimited, KindOf(err))

	var pipelineErr *Error
	s.Require().ErrorAs(err, &pipelineErr)
	s.Equal(MessageInvalid, pipelineErr.PublicMessage())
	s.Equal(5*time.Minute, pipelineErr.RetryAfter)

	limited, _ := s.audits.ListByType(s.ctx, audit.EventRateLimited)
	s.Len(limited, 1)
	s.Len(s.stored("john@example.com"), 5)

	later := requestcontext.WithTime(context.Background(), s.now.Add(5*time.Minute+time.Second))
	_, err = s.svc.ProcessSubmission(later, s.request())
	s.NoError(err)
}

func (s *PipelineSuite) TestExportUserData() {
	for range 2 {
		_, err := s.svc.ProcessSubmission(s.ctx, s.request())
		s.Require().NoError(err)
	}
	s.audits.Clear()

	export, err := s.svc.ExportUserData(s.ctx, " JOHN@example.com")
	s.Require().NoError(err)
	s.NotEmpty(export.ExportID)
	s.Equal("json", export.Format)
	s.Equal(MessageExport, export.Message)
	s.Len(export.Data, 2)

	s.Equal([]audit.EventType{audit.EventExportRequest, audit.EventExportSuccess}, s.eventTypes())
	events, _ := s.audits.ListAll(s.ctx)
	s.Equal(export.ExportID, events[1].Payload["export_id"])
	s.Equal(2, events[1].Payload["record_count"])
	s.NotEmpty(events[0].UserID)
	s.NotContains(events[0].UserID, "john")
}

func (s *PipelineSuite) TestExportUnknownSubjectIsEmpty() {
	export, err := s.svc.ExportUserData(s.ctx, "nobody@example.com")
	s.Require().NoError(err)
	s.NotNil(export.Data)
	s.Empty(export.Data)
}

func (s *PipelineSuite) TestExportRejectsMalformedEmail() {
	_, err := s.svc.ExportUserData(s.ctx, "not-an-email")
	s.Equal(KindValidation, KindOf(err))
	s.Equal([]audit.EventType{audit.EventExportRequest, audit.EventValidationError}, s.eventTypes())
}

func (s *PipelineSuite) TestErasureDeletesEveryRecord() {
	const n = 3
	for i := range n {
		req := s.request()
		req.IPAddress = "198.51.100." + string(rune('1'+i))
		_, err := s.svc.ProcessSubmission(s.ctx, req)
		s.Require().NoError(err)
	}
	other := s.request()
	other.Email = "other@example.com"
	_, err := s.svc.ProcessSubmission(s.ctx, other)
	s.Require().NoError(err)
	s.audits.Clear()

	result, err := s.svc.ProcessErasureRequest(s.ctx, "john@example.com")
	s.Require().NoError(err)
	s.Equal(n, result.DeletedCount)
	s.NotEmpty(result.DeletionID)
	s.Equal(MessageErasure, result.Message)

	s.Empty(s.stored("john@example.com"))
	s.Len(s.stored("other@example.com"), 1)
	s.Equal([]audit.EventType{audit.EventErasureRequest, audit.EventErasureSuccess}, s.eventTypes())

	again, err := s.svc.ProcessErasureRequest(s.ctx, "john@example.com")
	s.Require().NoError(err)
	s.Zero(again.DeletedCount)
}

func (s *PipelineSuite) TestSpansCarryOutcome() {
	_, _ = s.svc.ProcessSubmission(s.ctx, s.request())
	req := s.request()
	req.Consent = boolPtr(false)
	_, _ = s.svc.ProcessSubmission(s.ctx, req)

	ended := s.spans.Ended()
	s.Require().Len(ended, 2)
	s.Equal("contact.ProcessSubmission", ended[0].Name())
	outcomes := make([]string, 0, 2)
	for _, span := range ended {
		for _, attr := range span.Attributes() {
			if attr.Key == "outcome" {
				outcomes = append(outcomes, attr.Value.AsString())
			}
		}
	}
	s.Equal([]string{"success", "validation"}, outcomes)
}

type FailureSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	limiter *mocks.MockLimiter
	audits  *auditmemory.InMemoryStore
	svc     *Service
	ctx     context.Context
}

func TestFailureSuite(t *testing.T) {
	suite.Run(t, new(FailureSuite))
}

func (s *FailureSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.limiter = mocks.NewMockLimiter(s.ctrl)
	s.audits = auditmemory.NewInMemoryStore()
	auditor, err := audit.New(s.audits, audit.WithLogger(logger))
	s.Require().NoError(err)
	svc, err := New(s.store, s.limiter, auditor, privacy.NewHasher("salt"), WithLogger(logger))
	s.Require().NoError(err)
	s.svc = svc
	s.ctx = context.Background()
}

func (s *FailureSuite) allow() {
	s.limiter.EXPECT().Allow(gomock.Any(), gomock.Any()).
		Return(&rlmodels.RateLimitResult{Allowed: true, Limit: 5, Remaining: 4}, nil)
}

func (s *FailureSuite) request() models.SubmissionRequest {
	return models.SubmissionRequest{
		Email: "john@example.com", Message: "Hi", Consent: boolPtr(true),
		CSRFToken: validToken, IPAddress: "203.0.113.7",
	}
}

func (s *FailureSuite) lastEvent() audit.Event {
	events, _ := s.audits.ListAll(s.ctx)
	s.Require().NotEmpty(events)
	return events[len(events)-1]
}

func (s *FailureSuite) TestStorageFailureIsGenericInternalError() {
	s.allow()
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return("", errors.New("SQLITE_FULL: database or disk is full"))

	_, err := s.svc.ProcessSubmission(s.ctx, s.request())
	s.Equal(KindInternal, KindOf(err))

	var pipelineErr *Error
	s.Require().ErrorAs(err, &pipelineErr)
	s.Equal(MessageInternal, pipelineErr.PublicMessage())

	last := s.lastEvent()
	s.Equal(audit.EventError, last.Type)
	s.Equal(map[string]any{"error_kind": "storage"}, last.Payload)
}

func (s *FailureSuite) TestLimiterFailureIsInternal() {
	s.limiter.EXPECT().Allow(gomock.Any(), gomock.Any()).Return(nil, errors.New("redis: connection refused"))

	_, err := s.svc.ProcessSubmission(s.ctx, s.request())
	s.Equal(KindInternal, KindOf(err))
	s.Equal("rate_limiter", s.lastEvent().Payload["error_kind"])
}

func (s *FailureSuite) TestPanicIsRecoveredAndAudited() {
	s.allow()
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *models.Submission) (string, error) { panic("nil map write") })

	var err error
	s.NotPanics(func() { _, err = s.svc.ProcessSubmission(s.ctx, s.request()) })
	s.Equal(KindInternal, KindOf(err))

	events, _ := s.audits.ListAll(s.ctx)
	s.Require().Len(events, 2)
	s.Equal(audit.EventError, events[1].Type)
	s.Equal("panic", events[1].Payload["error_kind"])
}

func (s *FailureSuite) TestPanicWhileHashingIsAudited() {
	s.svc.hasher = nil

	var err error
	s.NotPanics(func() { _, err = s.svc.ProcessSubmission(s.ctx, s.request()) })
	s.Equal(KindInternal, KindOf(err))
	s.Equal(audit.EventError, s.lastEvent().Type)
	s.Equal("panic", s.lastEvent().Payload["error_kind"])

	s.NotPanics(func() { _, err = s.svc.ExportUserData(s.ctx, "john@example.com") })
	s.Equal(KindInternal, KindOf(err))
	s.Equal(audit.EventError, s.lastEvent().Type)

	s.NotPanics(func() { _, err = s.svc.ProcessErasureRequest(s.ctx, "john@example.com") })
	s.Equal(KindInternal, KindOf(err))
	s.Equal(audit.EventError, s.lastEvent().Type)
}

func (s *FailureSuite) TestErasureDeleteFailure() {
	s.store.EXPECT().FindByEmail(gomock.Any(), "john@example.com").
		Return([]*models.Submission{{ID: "a"}, {ID: "b"}}, nil)
	s.store.EXPECT().Delete(gomock.Any(), []string{"a", "b"}).Return(0, errors.New("locked"))

	_, err := s.svc.ProcessErasureRequest(s.ctx, "john@example.com")
	s.Equal(KindInternal, KindOf(err))
	s.Equal(audit.EventError, s.lastEvent().Type)
}

func (s *FailureSuite) TestExportLookupFailure() {
	s.store.EXPECT().FindByEmail(gomock.Any(), "john@example.com").Return(nil, errors.New("locked"))

	_, err := s.svc.ExportUserData(s.ctx, "john@example.com")
	s.Equal(KindInternal, KindOf(err))
}

func TestKindOf_ForeignErrorIsInternal(t *testing.T) {
	if KindOf(errors.New("x")) != KindInternal {
		t.Fatal("expected internal")
	}
	wrapped := errors.Join(errors.New("ctx"), &Error{Kind: KindRateLimited})
	if KindOf(wrapped) != KindRateLimited {
		t.Fatal("expected rate_limited through wrapping")
	}
}
