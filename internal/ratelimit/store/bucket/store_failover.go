package bucket

import (
	"context"
	"log/slog"
	"time"

	"corpsite/internal/ratelimit/models"
	"corpsite/internal/ratelimit/ports"
	"corpsite/pkg/platform/circuit"
)

// FailoverBucketStore checks a shared primary store (Redis) and answers from
// a local in-memory store when the primary errors. While the breaker is open
// the primary is only probed with Peek, so requests admitted by the fallback
// are never written to the shared window. Once enough consecutive probes
// succeed the request that closes the breaker is recorded on the primary.
type FailoverBucketStore struct {
	primary  ports.BucketStore
	fallback *InMemoryBucketStore
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

type FailoverOption func(*FailoverBucketStore)

func WithFailoverLogger(logger *slog.Logger) FailoverOption {
	return func(s *FailoverBucketStore) {
		s.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) FailoverOption {
	return func(s *FailoverBucketStore) {
		s.breaker = b
	}
}

func NewFailoverBucketStore(primary ports.BucketStore, fallback *InMemoryBucketStore, opts ...FailoverOption) *FailoverBucketStore {
	s := &FailoverBucketStore{
		primary:  primary,
		fallback: fallback,
		breaker:  circuit.New("ratelimit-primary"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FailoverBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	if s.breaker.IsOpen() {
		return s.probe(ctx, key, limit, window)
	}

	result, err := s.primary.Allow(ctx, key, limit, window)
	if err != nil {
		s.primaryFailed(ctx, err)
		return s.fallback.Allow(ctx, key, limit, window)
	}
	s.breaker.RecordSuccess()
	return result, nil
}

// Peek asks whichever store currently answers, without recording.
func (s *FailoverBucketStore) Peek(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	if s.breaker.IsOpen() {
		return s.fallback.Peek(ctx, key, limit, window)
	}
	return s.primary.Peek(ctx, key, limit, window)
}

func (s *FailoverBucketStore) probe(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	if _, err := s.primary.Peek(ctx, key, limit, window); err != nil {
		s.primaryFailed(ctx, err)
		return s.fallback.Allow(ctx, key, limit, window)
	}
	usePrimary, change := s.breaker.RecordSuccess()
	if !usePrimary {
		return s.fallback.Allow(ctx, key, limit, window)
	}
	if change.Closed {
		s.logger.InfoContext(ctx, "rate limit store recovered", "breaker", s.breaker.Name())
	}
	result, err := s.primary.Allow(ctx, key, limit, window)
	if err != nil {
		s.primaryFailed(ctx, err)
		return s.fallback.Allow(ctx, key, limit, window)
	}
	return result, nil
}

func (s *FailoverBucketStore) primaryFailed(ctx context.Context, err error) {
	_, change := s.breaker.RecordFailure()
	if change.Opened {
		s.logger.WarnContext(ctx, "rate limit store degraded, using in-memory fallback",
			"breaker", s.breaker.Name(),
			"error", err,
		)
	}
}

// EvictIdle evicts idle windows from the fallback store.
func (s *FailoverBucketStore) EvictIdle(ctx context.Context) (int, error) {
	return s.fallback.EvictIdle(ctx)
}

// Degraded reports whether answers currently come from the fallback.
func (s *FailoverBucketStore) Degraded() bool {
	return s.breaker.IsOpen()
}
