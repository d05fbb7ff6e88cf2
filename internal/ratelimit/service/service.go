// Package service applies the submission rate limit: a sliding window of
// accepted requests per hashed client identifier.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"corpsite/internal/platform/metrics"
	"corpsite/internal/ratelimit/models"
	"corpsite/internal/ratelimit/ports"
	"corpsite/pkg/requestcontext"
)

const (
	DefaultMaxRequests = 5
	DefaultWindow      = 5 * time.Minute
)

type Config struct {
	MaxRequests int
	Window      time.Duration
}

func DefaultConfig() Config {
	return Config{MaxRequests: DefaultMaxRequests, Window: DefaultWindow}
}

type Service struct {
	buckets ports.BucketStore
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if cfg.MaxRequests > 0 {
			s.config.MaxRequests = cfg.MaxRequests
		}
		if cfg.Window > 0 {
			s.config.Window = cfg.Window
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(buckets ports.BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("buckets store is required")
	}
	svc := &Service{
		buckets: buckets,
		config:  DefaultConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Config returns the effective limit.
func (s *Service) Config() Config {
	return s.config
}

// Allow admits or rejects one submission for identifier, which must already
// be a pseudonymous hash. A rejected attempt does not extend the window.
func (s *Service) Allow(ctx context.Context, identifier string) (*models.RateLimitResult, error) {
	key := models.Key(models.KeyPrefixSubmission, identifier)
	result, err := s.buckets.Allow(ctx, key, s.config.MaxRequests, s.config.Window)
	s.metrics.SetRateLimitDegraded(s.Degraded())
	if err != nil {
		return nil, fmt.Errorf("check submission rate limit: %w", err)
	}
	if !result.Allowed {
		s.metrics.IncRateLimited()
		s.logger.InfoContext(ctx, "submission rate limit exceeded",
			"limit", s.config.MaxRequests,
			"window_seconds", int(s.config.Window.Seconds()),
			"retry_after_seconds", result.RetryAfterSeconds(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return result, nil
}

// Degraded reports whether the limiter currently answers from a local
// fallback instead of its shared store.
func (s *Service) Degraded() bool {
	reporter, ok := s.buckets.(ports.HealthReporter)
	return ok && reporter.Degraded()
}

// RunEviction periodically drops idle windows from stores that keep them in
// memory. It returns when ctx is done.
func (s *Service) RunEviction(ctx context.Context, interval time.Duration) error {
	evicter, ok := s.buckets.(ports.IdleEvicter)
	if !ok || interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			remaining, err := evicter.EvictIdle(ctx)
			if err != nil {
				s.logger.WarnContext(ctx, "rate limit eviction failed", "error", err)
				continue
			}
			s.metrics.SetTrackedIdentifiers(remaining)
			s.logger.DebugContext(ctx, "rate limit windows evicted", "remaining", remaining)
		}
	}
}
