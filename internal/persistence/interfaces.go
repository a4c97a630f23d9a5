package persistence

import (
	"context"
	"time"

	"github.com/sawpanic/riskgate/internal/domain"
)

// DateRange is an inclusive window of dates
type DateRange struct {
	From domain.Date `json:"from"`
	To   domain.Date `json:"to"`
}

// Contains reports whether d falls inside the range. An empty bound is open.
func (r DateRange) Contains(d domain.Date) bool {
	if r.From != "" && d.Before(r.From) {
		return false
	}
	if r.To != "" && d.After(r.To) {
		return false
	}
	return true
}

// HistoryRepo persists history entries, one per date
type HistoryRepo interface {
	// Load returns every entry sorted ascending by date
	Load(ctx context.Context) ([]domain.HistoryEntry, error)

	// Upsert writes an entry atomically, replacing any entry for the same date
	Upsert(ctx context.Context, entry domain.HistoryEntry) error

	// Get returns the entry for a date, nil when absent
	Get(ctx context.Context, date domain.Date) (*domain.HistoryEntry, error)

	// ListRange returns entries inside the range, ascending
	ListRange(ctx context.Context, r DateRange) ([]domain.HistoryEntry, error)
}

// HealthCheck represents repository health status
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Backend        string         `json:"backend"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool,omitempty"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth provides health monitoring for the persistence layer
type RepositoryHealth interface {
	// Health returns current repository health status
	Health(ctx context.Context) HealthCheck

	// Ping tests basic connectivity to the backend
	Ping(ctx context.Context) error
}
