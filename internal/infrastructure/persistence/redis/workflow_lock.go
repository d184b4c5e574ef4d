package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/advisorhub/internal/domain/service"
)

var _ service.WorkflowLocker = (*WorkflowLock)(nil)

// releaseScript deletes the lock only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// WorkflowLock is a SET NX lock shared by every server instance.
type WorkflowLock struct {
	conn *RedisConnection
}

// NewWorkflowLock creates a WorkflowLock.
func NewWorkflowLock(conn *RedisConnection) *WorkflowLock {
	return &WorkflowLock{conn: conn}
}

// TryLock acquires key for ttl without waiting.
func (l *WorkflowLock) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	full := l.conn.Key("lock", key)
	token := uuid.NewString()

	ok, err := l.conn.Client().SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	unlock := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.conn.Client(), []string{full}, token).Err()
	}
	return unlock, true, nil
}
