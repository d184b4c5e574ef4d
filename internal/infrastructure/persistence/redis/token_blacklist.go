package redis

import (
	"context"
	"time"

	"github.com/turtacn/advisorhub/internal/domain/service"
)

type tokenBlacklist struct{ conn *RedisConnection }

// NewTokenBlacklistStore creates a Redis-backed revocation list.
func NewTokenBlacklistStore(conn *RedisConnection) service.TokenBlacklistStore {
	return &tokenBlacklist{conn: conn}
}

// Revoke keeps jti blacklisted until the token would have expired anyway.
func (b *tokenBlacklist) Revoke(ctx context.Context, jti string, exp time.Time) error {
	ttl := time.Until(exp)
	if ttl <= 0 {
		return nil
	}
	return b.conn.Client().Set(ctx, b.conn.Key("bl", jti), "1", ttl).Err()
}

func (b *tokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.conn.Client().Exists(ctx, b.conn.Key("bl", jti)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
