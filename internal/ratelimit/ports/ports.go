// Package ports defines the storage interfaces the ratelimit service consumes.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"corpsite/internal/ratelimit/models"
)

// BucketStore manages sliding window rate limit counters.
type BucketStore interface {
	// Allow checks if a single request is allowed and records it if so.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)

	// Peek answers like Allow but records nothing.
	Peek(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// IdleEvicter is implemented by stores that hold windows in process memory
// and must drop idle ones periodically. Redis expires keys on its own.
type IdleEvicter interface {
	// EvictIdle drops keys with an empty window and returns the remaining key count.
	EvictIdle(ctx context.Context) (int, error)
}

// HealthReporter is implemented by stores that can fall back to a degraded
// local answer.
type HealthReporter interface {
	Degraded() bool
}
