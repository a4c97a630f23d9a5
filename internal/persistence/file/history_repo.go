package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sawpanic/riskgate/internal/domain"
	"github.com/sawpanic/riskgate/internal/history"
	"github.com/sawpanic/riskgate/internal/persistence"
)

// document is the on-disk layout
type document struct {
	Version   int                   `json:"version"`
	UpdatedAt time.Time             `json:"updated_at"`
	Entries   []domain.HistoryEntry `json:"entries"`
}

const documentVersion = 1

// HistoryRepo stores history as one JSON document replaced atomically on write
type HistoryRepo struct {
	mu   sync.Mutex
	path string
}

// NewHistoryRepo creates a file-backed history repository
func NewHistoryRepo(path string) *HistoryRepo {
	return &HistoryRepo{path: path}
}

var _ persistence.HistoryRepo = (*HistoryRepo)(nil)
var _ persistence.RepositoryHealth = (*HistoryRepo)(nil)

// Load returns every entry sorted ascending. A missing file is an empty history.
func (r *HistoryRepo) Load(ctx context.Context) ([]domain.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	store, err := r.read()
	if err != nil {
		return nil, err
	}
	return store.Entries(), nil
}

// Upsert merges the entry and rewrites the document via temp file and rename
func (r *HistoryRepo) Upsert(ctx context.Context, entry domain.HistoryEntry) error {
	if entry.Date == "" {
		return fmt.Errorf("history entry has no date")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	store, err := r.read()
	if err != nil {
		return err
	}
	store.Merge(entry)
	return r.write(store.Entries())
}

// Get returns the entry for a date, nil when absent
func (r *HistoryRepo) Get(ctx context.Context, date domain.Date) (*domain.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	store, err := r.read()
	if err != nil {
		return nil, err
	}
	e, ok := store.Get(date)
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// ListRange returns entries inside the range
func (r *HistoryRepo) ListRange(ctx context.Context, dr persistence.DateRange) ([]domain.HistoryEntry, error) {
	entries, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if dr.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Health reports whether the document is readable
func (r *HistoryRepo) Health(ctx context.Context) persistence.HealthCheck {
	start := time.Now()
	hc := persistence.HealthCheck{Healthy: true, Backend: "file", LastCheck: start}
	if err := r.Ping(ctx); err != nil {
		hc.Healthy = false
		hc.Errors = append(hc.Errors, err.Error())
	}
	hc.ResponseTimeMS = time.Since(start).Milliseconds()
	return hc
}

// Ping checks that the history directory exists
func (r *HistoryRepo) Ping(ctx context.Context) error {
	dir := filepath.Dir(r.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("history directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("history directory %s is not a directory", dir)
	}
	return nil
}

func (r *HistoryRepo) read() (*history.Store, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return history.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse history %s: %w", r.path, err)
	}
	return history.New(doc.Entries...), nil
}

func (r *HistoryRepo) write(entries []domain.HistoryEntry) error {
	doc := document{Version: documentVersion, UpdatedAt: time.Now().UTC(), Entries: entries}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	return WriteAtomic(r.path, data)
}

// WriteAtomic writes data to a temp file in the target directory and renames it over path
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
