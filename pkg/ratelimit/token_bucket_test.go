package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketRefusesWhenEmpty(t *testing.T) {
	tb := NewTokenBucket(3, 0.0001)

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "request %d should pass", i)
	}
	assert.False(t, tb.Allow())
}

func TestTokenBucketAllowN(t *testing.T) {
	tb := NewTokenBucket(10, 0.0001)

	assert.True(t, tb.AllowN(10))
	assert.False(t, tb.AllowN(1))
}

func TestIPLimiterIsolatesClients(t *testing.T) {
	l := NewIPRateLimiter(1, 0.0001)
	defer l.Stop()

	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	// a different client gets its own bucket
	assert.True(t, l.Allow("10.0.0.2"))
}
