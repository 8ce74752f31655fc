package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"corpauth/pkg/platform/sentinel"
)

// ErrLockHeld is returned by Acquire when another holder owns the key.
var ErrLockHeld = fmt.Errorf("lock held by another instance: %w", sentinel.ErrConflict)

// releaseScript deletes the key only if it still carries our token, so an
// expired lock re-acquired by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a single-key mutual exclusion lock with a TTL, shared across
// processes that talk to the same Redis.
type Lock struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewLock creates a lock on key. The TTL bounds how long a crashed holder
// keeps other instances out.
func NewLock(client redis.Cmdable, key string, ttl time.Duration) *Lock {
	return &Lock{client: client, key: key, ttl: ttl}
}

// Acquire takes the lock. The returned release func is safe to call once
// the work is done; it uses a fresh context so cancellation of ctx does not
// leave the key behind until the TTL.
func (l *Lock) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err()
	}, nil
}
