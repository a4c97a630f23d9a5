package lock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/riskgate/internal/config"
)

func TestFileLockerExclusive(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "run.lock")
	l := NewFileLocker(path, time.Hour)

	release, err := l.Acquire(ctx, "run-1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "run-2")
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, release(ctx))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	release2, err := l.Acquire(ctx, "run-2")
	require.NoError(t, err)
	require.NoError(t, release2(ctx))
}

func TestFileLockerTakesOverAbandoned(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "run.lock")
	l := NewFileLocker(path, time.Minute)

	_, err := l.Acquire(ctx, "crashed")
	require.NoError(t, err)

	l.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	release, err := l.Acquire(ctx, "fresh")
	require.NoError(t, err)

	held, err := l.read()
	require.NoError(t, err)
	assert.Equal(t, "fresh", held.Owner)
	require.NoError(t, release(ctx))
}

func TestFileLockerReleaseKeepsForeignLock(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "run.lock")
	l := NewFileLocker(path, time.Minute)

	stale, err := l.Acquire(ctx, "old")
	require.NoError(t, err)

	l.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = l.Acquire(ctx, "new")
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	held, err := l.read()
	require.NoError(t, err)
	assert.Equal(t, "new", held.Owner)
}

func TestFileLockerRefreshExtendsLease(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "run.lock")
	l := NewFileLocker(path, time.Minute)
	start := time.Now()
	l.now = func() time.Time { return start }

	release, err := l.Acquire(ctx, "batch")
	require.NoError(t, err)

	l.now = func() time.Time { return start.Add(50 * time.Second) }
	require.NoError(t, l.Refresh(ctx, "batch"))

	// past the original ttl but inside the refreshed one
	l.now = func() time.Time { return start.Add(90 * time.Second) }
	_, err = l.Acquire(ctx, "other")
	assert.ErrorIs(t, err, ErrLocked)

	held, err := l.read()
	require.NoError(t, err)
	assert.Equal(t, "batch", held.Owner)
	assert.True(t, held.AcquiredAt.Equal(start.Add(50*time.Second).UTC()))
	require.NoError(t, release(ctx))
}

func TestFileLockerRefreshAfterTakeover(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "run.lock")
	l := NewFileLocker(path, time.Minute)
	start := time.Now()
	l.now = func() time.Time { return start }

	_, err := l.Acquire(ctx, "slow")
	require.NoError(t, err)

	l.now = func() time.Time { return start.Add(2 * time.Minute) }
	release, err := l.Acquire(ctx, "other")
	require.NoError(t, err)

	assert.ErrorIs(t, l.Refresh(ctx, "slow"), ErrLockLost)
	held, err := l.read()
	require.NoError(t, err)
	assert.Equal(t, "other", held.Owner, "a lost lease never overwrites the new owner")

	require.NoError(t, release(ctx))
	assert.ErrorIs(t, l.Refresh(ctx, "other"), ErrLockLost)
}

func TestRedisLockerRefresh(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	l := NewRedisLocker(client, "riskgate:run-lock", 30*time.Minute)
	ttlMillis := (30 * time.Minute).Milliseconds()

	mock.ExpectEval(refreshScript, []string{"riskgate:run-lock"}, "run-1", ttlMillis).SetVal(int64(1))
	assert.NoError(t, l.Refresh(ctx, "run-1"))

	mock.ExpectEval(refreshScript, []string{"riskgate:run-lock"}, "run-1", ttlMillis).SetVal(int64(0))
	assert.ErrorIs(t, l.Refresh(ctx, "run-1"), ErrLockLost)

	mock.ExpectEval(refreshScript, []string{"riskgate:run-lock"}, "run-1", ttlMillis).SetErr(errors.New("connection refused"))
	err := l.Refresh(ctx, "run-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockLost)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	l := NewRedisLocker(client, "riskgate:run-lock", 30*time.Minute)

	mock.ExpectSetNX("riskgate:run-lock", "run-1", 30*time.Minute).SetVal(true)
	mock.ExpectEval(releaseScript, []string{"riskgate:run-lock"}, "run-1").SetVal(int64(1))

	release, err := l.Acquire(ctx, "run-1")
	require.NoError(t, err)
	require.NoError(t, release(ctx))

	mock.ExpectSetNX("riskgate:run-lock", "run-2", 30*time.Minute).SetVal(false)
	_, err = l.Acquire(ctx, "run-2")
	assert.ErrorIs(t, err, ErrLocked)

	mock.ExpectSetNX("riskgate:run-lock", "run-3", 30*time.Minute).SetErr(errors.New("connection refused"))
	_, err = l.Acquire(ctx, "run-3")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSelectsBackend(t *testing.T) {
	l, err := New(config.LockConfig{Backend: "file", Path: filepath.Join(t.TempDir(), "x.lock"), TTL: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &FileLocker{}, l)

	_, err = New(config.LockConfig{Backend: "etcd"})
	assert.Error(t, err)
}
