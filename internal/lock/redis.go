package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// releaseScript deletes the key only when it still holds our owner token
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// refreshScript resets the expiry only while the key still holds our owner token
const refreshScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`

// RedisLocker holds the lock as a SET NX key expiring after ttl
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLocker creates a redis-backed locker
func NewRedisLocker(client *redis.Client, key string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

// Acquire sets the key if absent or returns ErrLocked
func (l *RedisLocker) Acquire(ctx context.Context, owner string) (Release, error) {
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func(ctx context.Context) error {
		if err := l.client.Eval(ctx, releaseScript, []string{l.key}, owner).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("redis unlock: %w", err)
		}
		return nil
	}, nil
}

// Refresh extends the key's expiry by ttl, or returns ErrLockLost if it expired
// and someone else set it
func (l *RedisLocker) Refresh(ctx context.Context, owner string) error {
	n, err := l.client.Eval(ctx, refreshScript, []string{l.key}, owner, l.ttl.Milliseconds()).Int64()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("redis lock refresh: %w", err)
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}
