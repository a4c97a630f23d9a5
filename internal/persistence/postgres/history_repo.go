package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/riskgate/internal/domain"
	"github.com/sawpanic/riskgate/internal/persistence"
)

// Schema creates the history table. Input and output are stored whole as JSONB;
// state, beta and confidence are denormalized for ad-hoc queries.
const Schema = `
CREATE TABLE IF NOT EXISTS history_entries (
	date       DATE PRIMARY KEY,
	input      JSONB NOT NULL,
	output     JSONB,
	state      TEXT,
	beta       DOUBLE PRECISION,
	confidence DOUBLE PRECISION,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectColumns = `to_char(date, 'YYYY-MM-DD') AS date, input, output`

// historyRecord is the scanned row
type historyRecord struct {
	Date   string `db:"date"`
	Input  []byte `db:"input"`
	Output []byte `db:"output"`
}

// historyRepo implements persistence.HistoryRepo for PostgreSQL
type historyRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewHistoryRepo creates a new PostgreSQL history repository
func NewHistoryRepo(db *sqlx.DB, timeout time.Duration) persistence.HistoryRepo {
	return &historyRepo{
		db:      db,
		timeout: timeout,
	}
}

// Migrate creates the history table when missing
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to migrate history_entries: %w", err)
	}
	return nil
}

// Upsert inserts or replaces the entry for its date inside one transaction
func (r *historyRepo) Upsert(ctx context.Context, entry domain.HistoryEntry) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if entry.Date == "" {
		return fmt.Errorf("history entry has no date")
	}
	if entry.Input == nil {
		return fmt.Errorf("history entry %s has no input", entry.Date)
	}

	inputJSON, err := json.Marshal(entry.Input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	var (
		output     interface{}
		state      sql.NullString
		beta       sql.NullFloat64
		confidence sql.NullFloat64
	)
	if entry.Output != nil {
		outputJSON, err := json.Marshal(entry.Output)
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		output = outputJSON
		state = sql.NullString{String: string(entry.Output.State), Valid: true}
		beta = sql.NullFloat64{Float64: entry.Output.Beta, Valid: true}
		confidence = sql.NullFloat64{Float64: entry.Output.Confidence, Valid: true}
	}

	query := `
		INSERT INTO history_entries
		(date, input, output, state, beta, confidence, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (date) DO UPDATE SET
			input = EXCLUDED.input,
			output = EXCLUDED.output,
			state = EXCLUDED.state,
			beta = EXCLUDED.beta,
			confidence = EXCLUDED.confidence,
			updated_at = EXCLUDED.updated_at`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, query, string(entry.Date), inputJSON, output, state, beta, confidence); err != nil {
		return fmt.Errorf("failed to upsert history entry %s: %w", entry.Date, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history entry %s: %w", entry.Date, err)
	}
	return nil
}

// Load returns every entry ascending by date
func (r *historyRepo) Load(ctx context.Context) ([]domain.HistoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + selectColumns + ` FROM history_entries ORDER BY date ASC`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Get retrieves one entry, nil when absent
func (r *historyRepo) Get(ctx context.Context, date domain.Date) (*domain.HistoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + selectColumns + ` FROM history_entries WHERE date = $1`
	var rec historyRecord
	if err := r.db.QueryRowxContext(ctx, query, string(date)).StructScan(&rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get history entry %s: %w", date, err)
	}
	entry, err := rec.entry()
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListRange retrieves entries within the window, ascending
func (r *historyRepo) ListRange(ctx context.Context, dr persistence.DateRange) ([]domain.HistoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	from, to := string(dr.From), string(dr.To)
	if from == "" {
		from = "0001-01-01"
	}
	if to == "" {
		to = "9999-12-31"
	}

	query := `SELECT ` + selectColumns + ` FROM history_entries
		WHERE date >= $1 AND date <= $2
		ORDER BY date ASC`
	rows, err := r.db.QueryxContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query history range: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sqlx.Rows) ([]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	for rows.Next() {
		var rec historyRecord
		if err := rows.StructScan(&rec); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entry, err := rec.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows iteration failed: %w", err)
	}
	return entries, nil
}

func (rec historyRecord) entry() (domain.HistoryEntry, error) {
	date, err := domain.ParseDate(rec.Date)
	if err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("invalid history date %q: %w", rec.Date, err)
	}
	entry := domain.HistoryEntry{Date: date}

	var in domain.Input
	if err := json.Unmarshal(rec.Input, &in); err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("failed to unmarshal input for %s: %w", date, err)
	}
	entry.Input = &in

	if len(rec.Output) > 0 && string(rec.Output) != "null" {
		var out domain.Decision
		if err := json.Unmarshal(rec.Output, &out); err != nil {
			return domain.HistoryEntry{}, fmt.Errorf("failed to unmarshal output for %s: %w", date, err)
		}
		entry.Output = &out
	}
	return entry, nil
}
