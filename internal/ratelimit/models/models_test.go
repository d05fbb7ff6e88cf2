package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "contact:abc", Key(KeyPrefixSubmission, "abc"))
	assert.Equal(t, "contact:a_b_c", Key(KeyPrefixSubmission, "a:b:c"))
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 0, (*RateLimitResult)(nil).RetryAfterSeconds())
	assert.Equal(t, 0, (&RateLimitResult{Allowed: true}).RetryAfterSeconds())
	assert.Equal(t, 2, (&RateLimitResult{RetryAfter: 1500 * time.Millisecond}).RetryAfterSeconds())
	assert.Equal(t, 60, (&RateLimitResult{RetryAfter: time.Minute}).RetryAfterSeconds())
}
