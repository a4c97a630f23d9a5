package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type lockFile struct {
	Owner      string    `json:"owner"`
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// FileLocker is an O_EXCL lockfile. A lockfile older than ttl is considered abandoned
// and is taken over.
type FileLocker struct {
	path string
	ttl  time.Duration
	now  func() time.Time
}

// NewFileLocker creates a lockfile-based locker
func NewFileLocker(path string, ttl time.Duration) *FileLocker {
	return &FileLocker{path: path, ttl: ttl, now: time.Now}
}

// Acquire creates the lockfile or returns ErrLocked
func (l *FileLocker) Acquire(ctx context.Context, owner string) (Release, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := l.create(owner)
		if err == nil {
			return l.release(owner), nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("failed to create lockfile: %w", err)
		}
		if !l.abandoned() {
			return nil, ErrLocked
		}
		if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove abandoned lockfile: %w", err)
		}
	}
	return nil, ErrLocked
}

func (l *FileLocker) create(owner string) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(lockFile{Owner: owner, PID: os.Getpid(), AcquiredAt: l.now().UTC()})
}

// Refresh restamps the lockfile so the lease runs for another ttl. The new content is
// written to a temp file and renamed over the lock.
func (l *FileLocker) Refresh(ctx context.Context, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	held, err := l.read()
	if errors.Is(err, os.ErrNotExist) {
		return ErrLockLost
	}
	if err != nil {
		return fmt.Errorf("failed to read lockfile: %w", err)
	}
	if held.Owner != owner {
		return ErrLockLost
	}

	held.AcquiredAt = l.now().UTC()
	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to refresh lockfile: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := json.NewEncoder(tmp).Encode(held); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to refresh lockfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to refresh lockfile: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("failed to refresh lockfile: %w", err)
	}
	return nil
}

// abandoned reports whether the current lockfile is older than the ttl
func (l *FileLocker) abandoned() bool {
	if l.ttl <= 0 {
		return false
	}
	held, err := l.read()
	if err != nil {
		info, statErr := os.Stat(l.path)
		if statErr != nil {
			return errors.Is(statErr, os.ErrNotExist)
		}
		return l.now().Sub(info.ModTime()) > l.ttl
	}
	return l.now().Sub(held.AcquiredAt) > l.ttl
}

func (l *FileLocker) read() (lockFile, error) {
	var held lockFile
	data, err := os.ReadFile(l.path)
	if err != nil {
		return held, err
	}
	err = json.Unmarshal(data, &held)
	return held, err
}

// release removes the lockfile only if owner still holds it
func (l *FileLocker) release(owner string) Release {
	return func(ctx context.Context) error {
		held, err := l.read()
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read lockfile: %w", err)
		}
		if held.Owner != owner {
			return nil
		}
		if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove lockfile: %w", err)
		}
		return nil
	}
}
