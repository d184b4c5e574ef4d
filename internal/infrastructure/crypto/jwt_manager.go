// Package crypto provides token signing, password hashing and secret loading.
package crypto

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

var _ service.TokenManager = (*JWTManager)(nil)

// JWTManager issues and verifies HS256 access tokens.
// JWTManager 签发并校验 HS256 访问令牌。
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	log    logger.Logger
}

// NewJWTManager creates a new JWTManager.
func NewJWTManager(cfg *config.JWTConfig, log logger.Logger) *JWTManager {
	return &JWTManager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.AccessTokenTTL,
		now:    time.Now,
		log:    log,
	}
}

// Issue creates and signs a new access token for user.
func (j *JWTManager) Issue(ctx context.Context, user *models.User) (string, string, time.Time, error) {
	now := j.now().UTC()
	expiresAt := now.Add(j.ttl)
	jti := uuid.NewString()

	claims := models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   user.ID.String(),
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: user.Role,
	}
	if user.FirmID != nil {
		claims.FirmID = user.FirmID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		j.log.Error(ctx, "Failed to sign JWT", err)
		return "", "", time.Time{}, errors.ErrServerError("failed to sign access token").WithCause(err)
	}
	return signed, jti, expiresAt, nil
}

// Verify parses and validates a token string and returns the caller it identifies.
func (j *JWTManager) Verify(ctx context.Context, tokenString string) (*models.Principal, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, stderrors.New("unexpected signing method")
		}
		return j.secret, nil
	},
		jwt.WithIssuer(j.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrUnauthorized("access token has expired")
		}
		return nil, errors.ErrUnauthorized("invalid access token").WithCause(err)
	}
	if !token.Valid {
		return nil, errors.ErrUnauthorized("invalid access token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.ErrUnauthorized("invalid token subject")
	}
	if !claims.Role.IsValid() || claims.ID == "" {
		return nil, errors.ErrUnauthorized("invalid access token")
	}

	principal := &models.Principal{
		UserID:    userID,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.FirmID != "" {
		firmID, err := uuid.Parse(claims.FirmID)
		if err != nil {
			return nil, errors.ErrUnauthorized("invalid token firm")
		}
		principal.FirmID = &firmID
	}
	return principal, nil
}

//Personal.AI order the ending
