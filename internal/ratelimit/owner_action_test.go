package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estatehub/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDisabledLimiterAllows(t *testing.T) {
	limiter, err := NewOwnerActionLimiter(OwnerActionParams{
		Config: config.Config{RateLimit: config.RateLimitConfig{Enabled: false}},
		Log:    zap.NewNop(),
	})
	require.NoError(t, err)
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())
	assert.NoError(t, limiter.Allow(context.Background(), snowflake.ID(1), ActionExtend))
}

func TestEnabledLimiterValidatesConfig(t *testing.T) {
	_, err := NewOwnerActionLimiter(OwnerActionParams{
		Config: config.Config{RateLimit: config.RateLimitConfig{Enabled: true, RedisAddr: "localhost:6379"}},
		Log:    zap.NewNop(),
	})
	assert.Error(t, err)

	_, err = NewOwnerActionLimiter(OwnerActionParams{
		Config: config.Config{RateLimit: config.RateLimitConfig{Enabled: true, OwnerActionRate: 1, OwnerActionBurst: 1}},
		Log:    zap.NewNop(),
	})
	assert.Error(t, err)
}

func TestOwnerActionKey(t *testing.T) {
	assert.Equal(t, "listing:owner:42:extend", OwnerActionKey(snowflake.ID(42), " extend "))
}

func TestLimitErrorUnwraps(t *testing.T) {
	err := error(&LimitError{Action: ActionEdit, RetryAfter: 2 * time.Second})
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Contains(t, err.Error(), "edit")
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), retryAfter(true, 0, 1))
	assert.Equal(t, 2*time.Second, retryAfter(false, 0, 0.5))
	assert.Equal(t, time.Duration(0), retryAfter(false, 1, 0.5))
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 40*time.Second, defaultBucketTTL(0.5, 10))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 1))
}

func TestCastHelpers(t *testing.T) {
	assert.Equal(t, int64(1), castToInt(int64(1)))
	assert.Equal(t, int64(3), castToInt("3"))
	assert.InDelta(t, 0.75, castToFloat("0.75"), 1e-9)
	assert.Equal(t, float64(2), castToFloat(int64(2)))
}
