package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/internal/domain/models"
)

// PasswordHasher hashes and verifies user passwords.
// PasswordHasher 对用户密码进行哈希和校验。
type PasswordHasher interface {
	// Hash returns an encoded hash of password.
	Hash(password string) (string, error)
	// Compare returns nil when password matches hash.
	Compare(hash, password string) error
}

// TokenManager issues and verifies access tokens.
// TokenManager 签发并校验访问令牌。
type TokenManager interface {
	// Issue signs an access token for user and returns it with its ID and expiry.
	Issue(ctx context.Context, user *models.User) (token, jti string, expiresAt time.Time, err error)
	// Verify checks signature, issuer and expiry and returns the caller.
	Verify(ctx context.Context, token string) (*models.Principal, error)
}

// TokenBlacklistStore defines the interface for storing and checking revoked tokens.
// TokenBlacklistStore 定义了用于存储和检查已撤销令牌的接口。
type TokenBlacklistStore interface {
	// Revoke adds a token's JTI to the blacklist until exp.
	Revoke(ctx context.Context, jti string, exp time.Time) error
	// IsRevoked checks if a token's JTI is in the blacklist.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RateLimitDimension defines the logical type of rate limiting.
type RateLimitDimension string

const (
	RateLimitDimensionUser RateLimitDimension = "user" // Per-user limit / 每个用户的限制
	RateLimitDimensionIP   RateLimitDimension = "ip"   // Per-IP limit / 每个 IP 的限制
)

// RateLimitService defines the interface for rate limiting operations.
// RateLimitService 定义了速率限制操作的接口。
type RateLimitService interface {
	// Allow consumes one request for key and reports whether it is within the limit,
	// how many requests remain and when the window resets.
	Allow(ctx context.Context, dimension RateLimitDimension, key string) (allowed bool, remaining int, resetAt time.Time, err error)
}

// WorkflowLocker provides short-lived mutual exclusion across server instances.
type WorkflowLocker interface {
	// TryLock acquires key for ttl. ok is false when another holder owns it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

// SubscriptionCache caches subscriptions by firm.
type SubscriptionCache interface {
	// GetOrLoad returns the cached subscription or calls load and caches the result.
	GetOrLoad(ctx context.Context, firmID uuid.UUID, load func(context.Context) (*models.Subscription, error)) (*models.Subscription, error)
	// Invalidate drops every cached copy for firmID.
	Invalidate(ctx context.Context, firmID uuid.UUID) error
}

// AuditService defines the interface for recording audit events.
// Implementations must not fail the caller's business operation on publish errors.
// AuditService 定义了用于记录审计事件的接口。
type AuditService interface {
	// LogEvent records an audit event.
	LogEvent(ctx context.Context, event *models.AuditEvent) error
}

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, event *models.AuditEvent) error
	Close() error
}

// DocumentStore stores document bytes in object storage.
type DocumentStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Exporter renders spreadsheets.
type Exporter interface {
	// ScorecardXLSX renders a BBA report's scorecard and findings.
	ScorecardXLSX(report *models.BBAReport) ([]byte, error)
	// WorkbookXLSX renders a strategy workbook with its capacity analysis.
	WorkbookXLSX(wb *models.StrategyWorkbook) ([]byte, error)
}

//Personal.AI order the ending
