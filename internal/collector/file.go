package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sawpanic/riskgate/internal/domain"
	"github.com/sawpanic/riskgate/internal/evaluation"
)

// FileCollector reads one <date>.json snapshot per date from a directory
type FileCollector struct {
	dir string
	now func() time.Time
}

// NewFileCollector creates a directory-backed collector
func NewFileCollector(dir string) *FileCollector {
	return &FileCollector{dir: dir, now: time.Now}
}

// Collect loads the snapshot for date
func (c *FileCollector) Collect(ctx context.Context, date domain.Date) (*domain.Input, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.LoadSnapshot(filepath.Join(c.dir, string(date)+".json"), date)
}

// LoadSnapshot reads one snapshot file for date. The file mtime stands in for
// fetch times the snapshot does not carry.
func (c *FileCollector) LoadSnapshot(path string, date domain.Date) (*domain.Input, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	info, statErr := os.Stat(path)
	fetched := c.now()
	if statErr == nil {
		fetched = info.ModTime()
	}
	return snap.ToInput(date, fetched)
}

// LoadPriceSeed reads a JSON object mapping YYYY-MM-DD to close price.
// An empty path yields an empty seed.
func LoadPriceSeed(path string) (evaluation.PriceSeed, error) {
	seed := evaluation.PriceSeed{}
	if path == "" {
		return seed, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read price seed: %w", err)
	}
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse price seed %s: %w", path, err)
	}
	for k, v := range raw {
		d, err := domain.ParseDate(k)
		if err != nil {
			return nil, fmt.Errorf("price seed %s: %w", path, err)
		}
		seed[d] = v
	}
	return seed, nil
}
