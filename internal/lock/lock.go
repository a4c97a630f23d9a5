// Package lock serializes pipeline runs across processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sawpanic/riskgate/internal/config"
)

// ErrLocked means another run holds the lock. Callers skip the run rather than fail it.
var ErrLocked = errors.New("run lock is held by another process")

// ErrLockLost means the lease expired and another owner took the lock over
var ErrLockLost = errors.New("run lock is no longer held by this owner")

// Release gives a held lock back
type Release func(ctx context.Context) error

// Locker acquires an exclusive run lock for owner. Refresh extends a held lease by
// another ttl; long runs call it between units of work.
type Locker interface {
	Acquire(ctx context.Context, owner string) (Release, error)
	Refresh(ctx context.Context, owner string) error
}

// New builds the locker selected by config
func New(cfg config.LockConfig) (Locker, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileLocker(cfg.Path, cfg.TTL), nil
	case "redis":
		client, err := NewRedisClient(cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		return NewRedisLocker(client, cfg.RedisKey, cfg.TTL), nil
	}
	return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
}

// NewRedisClient connects and pings
func NewRedisClient(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     4,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return rdb, nil
}
