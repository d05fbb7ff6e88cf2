// Package handler exposes the contact pipeline and the data subject requests
// over HTTP for both the web server and the function host.
package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"corpsite/internal/contact/models"
	"corpsite/internal/contact/notify"
	"corpsite/internal/contact/service"
	"corpsite/internal/platform/middleware"
	"corpsite/pkg/requestcontext"
)

const (
	serviceName       = "contact-api"
	msgEmailRequired  = "Email is required"
	msgInvalidRequest = "Invalid request data"
)

// Service is the pipeline as the transport sees it.
type Service interface {
	ProcessSubmission(ctx context.Context, req models.SubmissionRequest) (*models.SubmissionResult, error)
	ExportUserData(ctx context.Context, email string) (*models.ExportResult, error)
	ProcessErasureRequest(ctx context.Context, email string) (*models.ErasureResult, error)
}

type Notifier interface {
	Notify(ctx context.Context, sub *models.Submission) notify.Message
}

// LimiterStatus reports whether the submission limiter runs on its fallback.
type LimiterStatus interface {
	Degraded() bool
}

type Handler struct {
	svc      Service
	notifier Notifier
	limiter  LimiterStatus
	logger   *slog.Logger
	throttle func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithNotifier announces stored submissions to the communications team.
func WithNotifier(n Notifier) Option {
	return func(h *Handler) {
		h.notifier = n
	}
}

// WithLimiterStatus adds the limiter store state to the health body.
func WithLimiterStatus(l LimiterStatus) Option {
	return func(h *Handler) {
		h.limiter = l
	}
}

// WithDSRThrottle wraps the export and erasure routes.
func WithDSRThrottle(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.throttle = mw
	}
}

func New(svc Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		svc:    svc,
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterServer mounts the web server routes.
func (h *Handler) RegisterServer(r chi.Router) {
	r.Get("/api/contact/health", h.HandleHealth)
	r.With(middleware.ContentTypeJSON).Post("/api/contact/submit", h.HandleSubmit)
	h.registerDSR(r)
}

// RegisterFunction mounts the routes the function host forwards.
func (h *Handler) RegisterFunction(r chi.Router) {
	r.Get("/api/health", h.HandleHealth)
	r.With(middleware.ContentTypeJSON).Post("/api/contact", h.HandleSubmit)
	h.registerDSR(r)
}

func (h *Handler) registerDSR(r chi.Router) {
	dsr := r.With(middleware.ContentTypeJSON)
	if h.throttle != nil {
		dsr = dsr.With(h.throttle)
	}
	dsr.Post("/api/data/export", h.HandleExport)
	dsr.Post("/api/data/delete", h.HandleErasure)
}

type submitResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
	SubmissionID string `json:"submission_id,omitempty"`
}

type emailRequest struct {
	Email string `json:"email"`
}

// HandleSubmit runs one contact form through the pipeline.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req models.SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid contact request body",
			"request_id", requestID,
			"error", err,
		)
		writeJSON(w, http.StatusBadRequest, submitResponse{Error: service.MessageInvalid})
		return
	}
	req.IPAddress = requestcontext.ClientIP(ctx)
	req.UserAgent = requestcontext.UserAgent(ctx)

	result, err := h.svc.ProcessSubmission(ctx, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if h.notifier != nil && result.Record != nil {
		h.notifier.Notify(ctx, result.Record)
	}

	writeJSON(w, http.StatusOK, submitResponse{
		Success:      true,
		Message:      result.Message,
		SubmissionID: result.SubmissionID,
	})
}

type exportResponse struct {
	Success     bool   `json:"success"`
	ExportID    string `json:"export_id"`
	Format      string `json:"format"`
	RecordCount int    `json:"record_count"`
	Message     string `json:"message"`
}

// HandleExport queues a data portability request. The records themselves are
// not returned on this unauthenticated route.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	email, ok := h.decodeEmail(w, r)
	if !ok {
		return
	}

	result, err := h.svc.ExportUserData(r.Context(), email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, exportResponse{
		Success:     true,
		ExportID:    result.ExportID,
		Format:      result.Format,
		RecordCount: len(result.Data),
		Message:     result.Message,
	})
}

type erasureResponse struct {
	Success    bool   `json:"success"`
	DeletionID string `json:"deletion_id"`
	Message    string `json:"message"`
}

// HandleErasure deletes the data subject's submissions. The response does not
// reveal whether any existed.
func (h *Handler) HandleErasure(w http.ResponseWriter, r *http.Request) {
	email, ok := h.decodeEmail(w, r)
	if !ok {
		return
	}

	result, err := h.svc.ProcessErasureRequest(r.Context(), email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, erasureResponse{
		Success:    true,
		DeletionID: result.DeletionID,
		Message:    result.Message,
	})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": requestcontext.Now(r.Context()).UTC().Format(time.RFC3339),
	}
	if h.limiter != nil {
		body["rate_limit_store"] = "shared"
		if h.limiter.Degraded() {
			body["rate_limit_store"] = "fallback"
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) decodeEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(r.Context(), "invalid data request body",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusBadRequest, submitResponse{Error: msgInvalidRequest})
		return "", false
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeJSON(w, http.StatusBadRequest, submitResponse{Error: msgEmailRequired})
		return "", false
	}
	return email, true
}

// writeServiceError maps a pipeline error to status and public body. The
// reason never leaves the process.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		svcErr = &service.Error{Kind: service.KindInternal, Err: err}
	}

	switch svcErr.Kind {
	case service.KindValidation:
		writeJSON(w, http.StatusBadRequest, submitResponse{Error: svcErr.PublicMessage()})
	case service.KindRateLimited:
		if svcErr.RetryAfter > 0 {
			secs := int((svcErr.RetryAfter + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
		writeJSON(w, http.StatusTooManyRequests, submitResponse{Error: svcErr.PublicMessage()})
	default:
		h.logger.ErrorContext(ctx, "contact request failed",
			"request_id", middleware.GetRequestID(ctx),
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, submitResponse{Error: service.MessageInternal})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
