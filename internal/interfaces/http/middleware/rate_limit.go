package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// RateLimit limits authenticated callers per user and anonymous callers per client IP.
// Limiter errors never reject a request: the limiter's fallback answer is used and the error is logged.
// RateLimit 按用户（未登录时按 IP）限流。
func RateLimit(limiter service.RateLimitService, cfg *config.RateLimitConfig, metrics service.Metrics, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		dimension, key := service.RateLimitDimensionIP, c.ClientIP()
		if p, ok := PrincipalFrom(c); ok {
			dimension, key = service.RateLimitDimensionUser, p.UserID.String()
		}

		allowed, remaining, resetAt, err := limiter.Allow(c.Request.Context(), dimension, key)
		if err != nil {
			log.Warn(c.Request.Context(), "rate limiter degraded", logger.Err(err), logger.String("dimension", string(dimension)))
		}

		c.Header(constants.HeaderRateLimitLimit, strconv.Itoa(cfg.Limit))
		c.Header(constants.HeaderRateLimitRemaining, strconv.Itoa(remaining))

		if !allowed {
			metrics.RecordRateLimitHit(string(dimension))
			retry := int(time.Until(resetAt).Seconds()) + 1
			if retry < 1 {
				retry = 1
			}
			c.Header(constants.HeaderRetryAfter, strconv.Itoa(retry))
			log.Warn(c.Request.Context(), "rate limit exceeded",
				logger.String("dimension", string(dimension)),
				logger.String("identifier", key),
			)
			dto.SendError(c, errors.ErrRateLimitExceeded(string(dimension), cfg.Limit))
			return
		}

		c.Next()
	}
}

//Personal.AI order the ending
