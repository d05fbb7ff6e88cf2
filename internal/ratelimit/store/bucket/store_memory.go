package bucket

import (
	"context"
	"sync"
	"time"

	"corpsite/internal/ratelimit/models"
	"corpsite/pkg/requestcontext"
)

// DefaultMaxKeys caps the identifiers tracked by an InMemoryBucketStore.
const DefaultMaxKeys = 10000

// InMemoryBucketStore implements BucketStore using an in-memory sliding
// window per key. One mutex guards every window, so a check and the append
// that follows it are atomic for concurrent requests on the same key.
//
// "Now" is read from the request context, which lets tests move the clock.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	maxKeys int
}

// slidingWindow tracks accepted request timestamps, oldest first.
type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

type Option func(*InMemoryBucketStore)

// WithMaxKeys bounds the number of tracked keys. Zero or less means DefaultMaxKeys.
func WithMaxKeys(n int) Option {
	return func(s *InMemoryBucketStore) {
		if n > 0 {
			s.maxKeys = n
		}
	}
}

// NewInMemoryBucketStore creates a new in-memory bucket store.
func NewInMemoryBucketStore(opts ...Option) *InMemoryBucketStore {
	s := &InMemoryBucketStore{
		buckets: make(map[string]*slidingWindow),
		maxKeys: DefaultMaxKeys,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow checks if a request is allowed and records it when it is. A rejected
// request records nothing.
func (s *InMemoryBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	cw := s.getOrCreateBucket(key, window, now)
	cw.cleanup(now)
	result := cw.result(now, limit)
	if result.Allowed {
		cw.timestamps = append(cw.timestamps, now)
		result.Remaining--
		result.ResetAt = cw.timestamps[0].Add(window)
	}
	return result, nil
}

// Peek reports what Allow would answer for key without recording the request
// or creating a window.
func (s *InMemoryBucketStore) Peek(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	cw := s.buckets[key]
	if cw == nil {
		cw = &slidingWindow{window: window}
	}
	cw.cleanup(now)
	return cw.result(now, limit), nil
}

// EvictIdle drops every key whose window holds no live timestamps and
// returns how many keys remain.
func (s *InMemoryBucketStore) EvictIdle(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictIdleLocked(now)
	return len(s.buckets), nil
}

func (s *InMemoryBucketStore) evictIdleLocked(now time.Time) {
	for key, cw := range s.buckets {
		cw.cleanup(now)
		if len(cw.timestamps) == 0 {
			delete(s.buckets, key)
		}
	}
}

// cleanup removes timestamps at or before now-window.
func (sw *slidingWindow) cleanup(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// result reports the window state for one more request at now. Remaining
// counts the slots left before that request is recorded.
func (sw *slidingWindow) result(now time.Time, limit int) *models.RateLimitResult {
	count := len(sw.timestamps)
	resetAt := now.Add(sw.window)
	if count > 0 {
		resetAt = sw.timestamps[0].Add(sw.window)
	}
	if count < limit {
		return &models.RateLimitResult{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - count,
			ResetAt:   resetAt,
		}
	}
	return &models.RateLimitResult{
		Limit:      limit,
		ResetAt:    resetAt,
		RetryAfter: resetAt.Sub(now),
	}
}

func (sw *slidingWindow) lastSeen() time.Time {
	if len(sw.timestamps) == 0 {
		return time.Time{}
	}
	return sw.timestamps[len(sw.timestamps)-1]
}

// getOrCreateBucket returns an existing bucket or creates a new one, making
// room first when the key cap is reached: idle keys go, then the key that
// was least recently admitted.
// Must be called while holding s.mu.
func (s *InMemoryBucketStore) getOrCreateBucket(key string, window time.Duration, now time.Time) *slidingWindow {
	if cw := s.buckets[key]; cw != nil {
		cw.window = window
		return cw
	}
	if len(s.buckets) >= s.maxKeys {
		s.evictIdleLocked(now)
	}
	if len(s.buckets) >= s.maxKeys {
		var oldestKey string
		var oldest time.Time
		for k, cw := range s.buckets {
			if seen := cw.lastSeen(); oldestKey == "" || seen.Before(oldest) {
				oldestKey, oldest = k, seen
			}
		}
		delete(s.buckets, oldestKey)
	}
	cw := &slidingWindow{timestamps: []time.Time{}, window: window}
	s.buckets[key] = cw
	return cw
}
