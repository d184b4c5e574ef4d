package redis

import (
	"context"
	"time"
)

// IdempotencyStore remembers Idempotency-Key values already claimed by a caller.
type IdempotencyStore struct {
	conn *RedisConnection
}

// NewIdempotencyStore creates an IdempotencyStore.
func NewIdempotencyStore(conn *RedisConnection) *IdempotencyStore {
	return &IdempotencyStore{conn: conn}
}

// Claim atomically records key for scope. It returns false when the key was already used.
func (s *IdempotencyStore) Claim(ctx context.Context, scope, key string, ttl time.Duration) (bool, error) {
	return s.conn.Client().SetNX(ctx, s.conn.Key("idem", scope, key), time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// Release forgets a claim so the request can be retried, e.g. after a failed handler.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	return s.conn.Client().Del(ctx, s.conn.Key("idem", scope, key)).Err()
}
