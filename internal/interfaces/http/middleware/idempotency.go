package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// IdempotencyStore claims Idempotency-Key values.
type IdempotencyStore interface {
	Claim(ctx context.Context, scope, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, scope, key string) error
}

// Idempotency rejects a POST whose Idempotency-Key the same caller already used with 409 Conflict.
// The claim is released when the handler fails with a server error so the client can retry.
// Idempotency 使用 Redis SETNX 防止重复提交；存储故障时放行。
func Idempotency(store IdempotencyStore, cfg *config.IdempotencyConfig, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(constants.HeaderIdempotencyKey)
		if !cfg.Enabled || c.Request.Method != http.MethodPost || key == "" {
			c.Next()
			return
		}
		if len(key) > 128 {
			dto.SendError(c, errors.ErrInvalidRequest("Idempotency-Key must be at most 128 characters"))
			return
		}

		scope := "ip:" + c.ClientIP()
		if p, ok := PrincipalFrom(c); ok {
			scope = "user:" + p.UserID.String()
		}

		claimed, err := store.Claim(c.Request.Context(), scope, key, cfg.TTL)
		if err != nil {
			log.Error(c.Request.Context(), "Idempotency claim failed", err, logger.String("scope", scope))
			c.Next()
			return
		}
		if !claimed {
			log.Warn(c.Request.Context(), "Replayed Idempotency-Key", logger.String("scope", scope))
			dto.SendError(c, errors.ErrConflict("a request with this Idempotency-Key was already processed"))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError {
			if err := store.Release(context.WithoutCancel(c.Request.Context()), scope, key); err != nil {
				log.Warn(c.Request.Context(), "Idempotency release failed", logger.Err(err))
			}
		}
	}
}

//Personal.AI order the ending
