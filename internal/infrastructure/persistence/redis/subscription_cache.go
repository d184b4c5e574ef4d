package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/logger"
)

var _ service.SubscriptionCache = (*SubscriptionCache)(nil)

// SubscriptionCache is a two-level subscription cache: an in-process L1 in front of Redis.
// Concurrent misses for the same firm share one load.
// SubscriptionCache 是两级订阅缓存：进程内 L1 + Redis L2。
type SubscriptionCache struct {
	conn     *RedisConnection
	l1       *gocache.Cache
	sf       singleflight.Group
	redisTTL time.Duration
	metrics  service.Metrics
	logger   logger.Logger
}

// NewSubscriptionCache creates a SubscriptionCache with the default lifetimes.
func NewSubscriptionCache(conn *RedisConnection, metrics service.Metrics, log logger.Logger) *SubscriptionCache {
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	return &SubscriptionCache{
		conn:     conn,
		l1:       gocache.New(constants.SubscriptionLocalCacheTTL, 2*constants.SubscriptionLocalCacheTTL),
		redisTTL: constants.SubscriptionCacheTTL,
		metrics:  metrics,
		logger:   log.WithComponent("SubscriptionCache"),
	}
}

func (c *SubscriptionCache) key(firmID uuid.UUID) string {
	return c.conn.Key("subscription", firmID.String())
}

// GetOrLoad returns the firm's subscription from L1, then Redis, then load.
// Redis failures degrade to calling load.
func (c *SubscriptionCache) GetOrLoad(ctx context.Context, firmID uuid.UUID, load func(context.Context) (*models.Subscription, error)) (*models.Subscription, error) {
	key := c.key(firmID)

	if v, ok := c.l1.Get(key); ok {
		c.metrics.RecordCacheAccess("subscription_l1", true)
		sub := *v.(*models.Subscription)
		return &sub, nil
	}
	c.metrics.RecordCacheAccess("subscription_l1", false)

	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		raw, err := c.conn.Client().Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var sub models.Subscription
			if jsonErr := json.Unmarshal(raw, &sub); jsonErr == nil {
				c.metrics.RecordCacheAccess("subscription_redis", true)
				c.l1.SetDefault(key, &sub)
				return &sub, nil
			}
			c.logger.Warn(ctx, "Discarding undecodable cached subscription", logger.String("firm_id", firmID.String()))
		case stderrors.Is(err, redis.Nil):
		default:
			c.logger.Warn(ctx, "Subscription cache read failed", logger.Err(err))
		}
		c.metrics.RecordCacheAccess("subscription_redis", false)

		sub, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(sub); err == nil {
			if err := c.conn.Client().Set(ctx, key, data, c.redisTTL).Err(); err != nil {
				c.logger.Warn(ctx, "Subscription cache write failed", logger.Err(err))
			}
		}
		c.l1.SetDefault(key, sub)
		return sub, nil
	})
	if err != nil {
		return nil, err
	}
	sub := *v.(*models.Subscription)
	return &sub, nil
}

// EvictLocal drops the firm's subscription from this instance's L1 only.
// Other instances call it when they learn about a change made elsewhere.
func (c *SubscriptionCache) EvictLocal(firmID uuid.UUID) {
	c.l1.Delete(c.key(firmID))
}

// Invalidate drops the firm's subscription from both levels.
func (c *SubscriptionCache) Invalidate(ctx context.Context, firmID uuid.UUID) error {
	key := c.key(firmID)
	c.l1.Delete(key)
	if err := c.conn.Client().Del(ctx, key).Err(); err != nil {
		c.logger.Error(ctx, "Failed to invalidate cached subscription", err, logger.String("firm_id", firmID.String()))
		return err
	}
	return nil
}
