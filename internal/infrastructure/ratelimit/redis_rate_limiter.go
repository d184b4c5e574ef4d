package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/logger"
)

var _ service.RateLimitService = (*RedisRateLimiter)(nil)

// RedisRateLimiter implements distributed rate limiting with a Redis token bucket.
// When Redis is unreachable it falls back to per-instance buckets.
type RedisRateLimiter struct {
	client       redis.UniversalClient
	keyPrefix    string
	capacity     int
	rate         float64
	logger       logger.Logger
	localBuckets *localBuckets
}

// Lua script for atomic token bucket operations
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(bucket[1]) or capacity
local last_refill = tonumber(bucket[2]) or now

-- rate is per second, elapsed in ms
local elapsed = math.max(0, now - last_refill)
tokens = math.min(tokens + elapsed * rate / 1000, capacity)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

local reset_ms = 0
if tokens < capacity then
    reset_ms = math.ceil((capacity - tokens) / rate * 1000)
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill', now)
redis.call('PEXPIRE', key, reset_ms + 60000)

return {allowed, math.floor(tokens), reset_ms}
`)

// NewRedisRateLimiter creates a limiter allowing cfg.Limit requests per cfg.Window for each key.
// keyPrefix namespaces the buckets, e.g. the Redis connection's prefix.
func NewRedisRateLimiter(client redis.UniversalClient, keyPrefix string, cfg *config.RateLimitConfig, log logger.Logger) *RedisRateLimiter {
	rate := float64(cfg.Limit) / cfg.Window.Seconds()
	rl := &RedisRateLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		capacity:  cfg.Limit,
		rate:      rate,
		logger:    log.WithComponent("RateLimiter"),
		// A local bucket idle for a full window would be full anyway.
		localBuckets: newLocalBuckets(float64(cfg.Limit), rate, cfg.Window),
	}
	log.Info(context.Background(), "Redis rate limiter initialized",
		logger.Int("limit", cfg.Limit),
		logger.Duration("window", cfg.Window),
	)
	return rl
}

// Limit returns the bucket capacity.
func (rl *RedisRateLimiter) Limit() int {
	return rl.capacity
}

// Allow consumes one token for key in the given dimension.
// A Redis failure is answered from the local fallback bucket and also returned as err.
func (rl *RedisRateLimiter) Allow(ctx context.Context, dimension service.RateLimitDimension, key string) (bool, int, time.Time, error) {
	redisKey := rl.buildKey(dimension, key)
	now := time.Now()

	res, err := tokenBucketScript.Run(ctx, rl.client, []string{redisKey}, rl.capacity, rl.rate, now.UnixMilli()).Int64Slice()
	if err != nil || len(res) < 3 {
		if err == nil {
			err = fmt.Errorf("unexpected rate limit script result %v", res)
		}
		rl.logger.Warn(ctx, "Redis rate limit check failed, using local bucket", logger.Err(err))
		allowed, remaining, untilFull := rl.localBuckets.take(redisKey, now)
		return allowed, remaining, now.Add(untilFull), err
	}

	return res[0] == 1, int(res[1]), now.Add(time.Duration(res[2]) * time.Millisecond), nil
}

// Reset clears the bucket for key.
func (rl *RedisRateLimiter) Reset(ctx context.Context, dimension service.RateLimitDimension, key string) error {
	return rl.client.Del(ctx, rl.buildKey(dimension, key)).Err()
}

func (rl *RedisRateLimiter) buildKey(dimension service.RateLimitDimension, key string) string {
	return fmt.Sprintf("%sratelimit:%s:%s", rl.keyPrefix, dimension, key)
}
