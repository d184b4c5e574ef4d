package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/internal/infrastructure/ratelimit"
	"github.com/turtacn/advisorhub/pkg/logger"
)

func newLimiter(t *testing.T, limit int) (*ratelimit.RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cfg := &config.RateLimitConfig{Enabled: true, Limit: limit, Window: time.Hour}
	return ratelimit.NewRedisRateLimiter(client, "test:", cfg, logger.NewNoopLogger()), s
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	rl, s := newLimiter(t, 3)
	ctx := context.Background()

	for i := 2; i >= 0; i-- {
		allowed, remaining, resetAt, err := rl.Allow(ctx, service.RateLimitDimensionUser, "u1")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, i, remaining)
		assert.True(t, resetAt.After(time.Now()))
	}

	allowed, remaining, _, err := rl.Allow(ctx, service.RateLimitDimensionUser, "u1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)

	// Separate keys and dimensions have separate buckets.
	allowed, _, _, err = rl.Allow(ctx, service.RateLimitDimensionIP, "u1")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.True(t, s.Exists("test:ratelimit:user:u1"))

	require.NoError(t, rl.Reset(ctx, service.RateLimitDimensionUser, "u1"))
	allowed, _, _, err = rl.Allow(ctx, service.RateLimitDimensionUser, "u1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_LocalFallback(t *testing.T) {
	rl, s := newLimiter(t, 1)
	s.Close()
	ctx := context.Background()

	allowed, _, _, err := rl.Allow(ctx, service.RateLimitDimensionIP, "10.0.0.1")
	assert.Error(t, err)
	assert.True(t, allowed)

	allowed, _, _, err = rl.Allow(ctx, service.RateLimitDimensionIP, "10.0.0.1")
	assert.Error(t, err)
	assert.False(t, allowed)
}

//Personal.AI order the ending
