package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// extractBearer extracts the token from the Authorization header.
func extractBearer(authHeader string) string {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// RequireJWT protects routes with a valid, non-revoked access token and stores the caller's principal.
// RequireJWT 校验访问令牌并检查黑名单，通过后写入调用方身份。
func RequireJWT(tokens service.TokenManager, bl service.TokenBlacklistStore, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractBearer(c.GetHeader("Authorization"))
		if tokenStr == "" {
			dto.SendError(c, errors.ErrUnauthorized("missing bearer token"))
			return
		}

		p, err := tokens.Verify(c.Request.Context(), tokenStr)
		if err != nil {
			log.Warn(c.Request.Context(), "JWT verification failed", logger.Err(err))
			dto.SendError(c, err)
			return
		}

		revoked, err := bl.IsRevoked(c.Request.Context(), p.TokenID)
		if err != nil {
			log.Error(c.Request.Context(), "Failed to check token blacklist", err)
			dto.SendError(c, errors.ErrServiceUnavailable("token revocation check failed"))
			return
		}
		if revoked {
			log.Warn(c.Request.Context(), "Access attempt with revoked token", logger.String("jti", p.TokenID))
			dto.SendError(c, errors.ErrUnauthorized("token has been revoked"))
			return
		}

		SetPrincipal(c, p)
		c.Next()
	}
}

// RequireRoles rejects callers whose role is not listed. It must run after RequireJWT.
func RequireRoles(roles ...constants.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			dto.SendError(c, errors.ErrUnauthorized("authentication required"))
			return
		}
		if !p.HasRole(roles...) {
			dto.SendError(c, errors.ErrForbidden("insufficient role"))
			return
		}
		c.Next()
	}
}

// SetPrincipal stores p on the gin context and copies firm and user ids into the request context for logging.
func SetPrincipal(c *gin.Context, p *models.Principal) {
	c.Set(string(constants.ContextKeyPrincipal), p)
	ctx := context.WithValue(c.Request.Context(), constants.ContextKeyUserID, p.UserID.String())
	if p.FirmID != nil {
		ctx = context.WithValue(ctx, constants.ContextKeyFirmID, p.FirmID.String())
	}
	c.Request = c.Request.WithContext(ctx)
}

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(c *gin.Context) (*models.Principal, bool) {
	v, ok := c.Get(string(constants.ContextKeyPrincipal))
	if !ok {
		return nil, false
	}
	p, ok := v.(*models.Principal)
	return p, ok && p != nil
}

//Personal.AI order the ending
