package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/quoteflow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestNilWriteLimiterAllows(t *testing.T) {
	var l *WriteLimiter
	assert.False(t, l.Enabled())

	res, err := l.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestDisabledConfigReturnsNil(t *testing.T) {
	l, err := NewWriteLimiter(Params{
		Lifecycle: fxtest.NewLifecycle(t),
		Cfg:       config.Config{},
		Log:       zap.NewNop(),
	})
	require.NoError(t, err)
	assert.Nil(t, l)
}

func TestEnabledConfigValidation(t *testing.T) {
	_, err := NewWriteLimiter(Params{
		Lifecycle: fxtest.NewLifecycle(t),
		Cfg: config.Config{RateLimit: config.RateLimitConfig{
			Enabled:   true,
			RedisAddr: "localhost:6379",
		}},
		Log: zap.NewNop(),
	})
	assert.EqualError(t, err, "write rate limit must be positive")

	_, err = NewWriteLimiter(Params{
		Lifecycle: fxtest.NewLifecycle(t),
		Cfg:       config.Config{RateLimit: config.RateLimitConfig{Enabled: true, WriteRate: 1, WriteBurst: 1}},
		Log:       zap.NewNop(),
	})
	assert.EqualError(t, err, "rate limit redis addr is required")
}

func TestTokenBucketRejectsBadInput(t *testing.T) {
	var bucket *TokenBucket
	_, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)
	assert.Nil(t, NewTokenBucket(nil))
}

func TestRetryAfter(t *testing.T) {
	assert.Zero(t, retryAfter(true, 0, 5))
	assert.Equal(t, 200*time.Millisecond, retryAfter(false, 0, 5))
	assert.Equal(t, 500*time.Millisecond, retryAfter(false, 0.5, 1))
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 8*time.Second, defaultBucketTTL(5, 20))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 0))
}

func TestCastHelpers(t *testing.T) {
	assert.Equal(t, int64(1), castToInt(int64(1)))
	assert.Equal(t, 2.5, castToFloat("2.5"))
	assert.Zero(t, castToFloat("nope"))
}
