package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"corpsite/internal/ratelimit/models"
	"corpsite/pkg/requestcontext"
)

// slidingWindowScript prunes, counts and conditionally appends in one atomic
// step on a sorted set scored by unix milliseconds. With record set to 0 it
// only prunes and counts.
//
// KEYS[1] bucket key
// ARGV[1] now (ms), ARGV[2] window (ms), ARGV[3] limit, ARGV[4] record (0|1), ARGV[5] member
// Returns {allowed, count, oldest_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local record = ARGV[4] == '1'
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

local allowed = 0
if count < limit then
  allowed = 1
  if record then
    redis.call('ZADD', key, now, member)
    count = count + 1
  end
end
if record then
  redis.call('PEXPIRE', key, window)
end

local oldest = now
local first = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if first[2] then
  oldest = tonumber(first[2])
end
return {allowed, count, oldest}
`)

// RedisBucketStore implements BucketStore on Redis so several instances share
// one window per identifier. Keys expire one window after their last write.
type RedisBucketStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisBucketStore wraps client. Keys are stored under "ratelimit:".
func NewRedisBucketStore(client redis.UniversalClient) *RedisBucketStore {
	return &RedisBucketStore{client: client, prefix: "ratelimit:"}
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	return s.run(ctx, key, limit, window, true)
}

// Peek prunes and counts key without recording a request.
func (s *RedisBucketStore) Peek(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	return s.run(ctx, key, limit, window, false)
}

func (s *RedisBucketStore) run(ctx context.Context, key string, limit int, window time.Duration, record bool) (*models.RateLimitResult, error) {
	now := requestcontext.Now(ctx)
	flag := "0"
	if record {
		flag = "1"
	}

	res, err := slidingWindowScript.Run(ctx, s.client,
		[]string{s.prefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, flag, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("run sliding window script: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("unexpected sliding window reply length %d", len(res))
	}

	allowed, count, oldestMs := res[0] == 1, int(res[1]), res[2]
	resetAt := time.UnixMilli(oldestMs).Add(window).In(now.Location())

	result := &models.RateLimitResult{
		Allowed: allowed,
		Limit:   limit,
		ResetAt: resetAt,
	}
	if allowed {
		result.Remaining = max(limit-count, 0)
	} else {
		result.RetryAfter = max(resetAt.Sub(now), 0)
	}
	return result, nil
}
