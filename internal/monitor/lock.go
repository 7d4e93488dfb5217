package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker keeps two processes from sweeping at the same time. Correctness
// does not depend on it; alert claims are atomic in the store.
type Locker interface {
	TryLock(ctx context.Context) (release func(), ok bool, err error)
}

// NoopLocker always grants the lock.
type NoopLocker struct{}

// TryLock implements Locker.
func (NoopLocker) TryLock(context.Context) (func(), bool, error) {
	return func() {}, true, nil
}

// DefaultLockKey is the redis key guarding sweeps.
const DefaultLockKey = "sla:sweep:lock"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker takes a SET NX PX lease on a key.
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLocker builds a locker. The ttl should be shorter than the sweep
// interval so a crashed holder never blocks the next tick.
func NewRedisLocker(client *redis.Client, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = DefaultLockKey
	}
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

// TryLock implements Locker.
func (l *RedisLocker) TryLock(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil || !ok {
		return func() {}, false, err
	}
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err()
	}
	return release, true, nil
}
