// Package collector fetches raw per-date input snapshots and price seeds.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
)

// ErrNoSnapshot means the source has nothing for the requested date
var ErrNoSnapshot = errors.New("no input snapshot for date")

// Collector produces the raw input for a date
type Collector interface {
	Collect(ctx context.Context, date domain.Date) (*domain.Input, error)
}

// SnapshotField is one field on the wire
type SnapshotField struct {
	Value      domain.Value `json:"value"`
	Source     string       `json:"source,omitempty"`
	ObservedAt *time.Time   `json:"observedAt,omitempty"`
	FetchedAt  *time.Time   `json:"fetchedAt,omitempty"`
	UpdatedAt  *time.Time   `json:"updatedAt,omitempty"`
}

// Snapshot is the wire format shared by the file and HTTP collectors
type Snapshot struct {
	Date   domain.Date              `json:"date"`
	Fields map[string]SnapshotField `json:"fields"`
	Errors []string                 `json:"errors,omitempty"`
}

// ToInput converts the snapshot into an input record. fetchedAt fills missing fetch times.
func (s Snapshot) ToInput(date domain.Date, fetchedAt time.Time) (*domain.Input, error) {
	if s.Date != "" && s.Date != date {
		return nil, fmt.Errorf("snapshot is for %s, requested %s", s.Date, date)
	}
	in := domain.NewInput(date)

	keys := make([]string, 0, len(s.Fields))
	for k := range s.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		f := s.Fields[k]
		prov := domain.FieldProvenance{
			Source:     f.Source,
			ObservedAt: f.ObservedAt,
			FetchedAt:  f.FetchedAt,
			UpdatedAt:  f.UpdatedAt,
		}
		if prov.FetchedAt == nil {
			t := fetchedAt.UTC()
			prov.FetchedAt = &t
		}
		in.Set(k, f.Value, prov)
		if f.Value.IsNull() {
			in.MarkMissing(k)
		}
	}
	for _, msg := range s.Errors {
		in.AddError("", domain.DiagCollector, msg)
	}
	return in, nil
}

// New builds the collector selected by config
func New(cfg config.CollectorConfig) (Collector, error) {
	switch cfg.Kind {
	case "", "file":
		return NewFileCollector(cfg.Dir), nil
	case "http":
		return NewHTTPCollector(cfg), nil
	}
	return nil, fmt.Errorf("unknown collector kind %q", cfg.Kind)
}
