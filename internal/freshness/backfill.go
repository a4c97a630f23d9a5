package freshness

import (
	"fmt"
	"time"

	"github.com/sawpanic/riskgate/internal/domain"
)

// HistoryReader is the read side of the history store the policy needs
type HistoryReader interface {
	// EntriesThrough returns entries with date <= d in ascending date order
	EntriesThrough(d domain.Date) []domain.HistoryEntry
}

// BackfillOptions tunes candidate selection
type BackfillOptions struct {
	AllowStale bool
}

// Candidate is a historical value eligible to fill a gap
type Candidate struct {
	Value      domain.Value     `json:"value"`
	Date       domain.Date      `json:"date"`
	ObservedAt *time.Time       `json:"observed_at,omitempty"`
	FetchedAt  *time.Time       `json:"fetched_at,omitempty"`
	Freshness  domain.Freshness `json:"freshness"`
	Source     string           `json:"source"`
}

// BackfillReport lists what a backfill pass did per key
type BackfillReport struct {
	Filled       []string `json:"filled"`
	StaleBlocked []string `json:"stale_blocked"`
	Missing      []string `json:"missing"`
}

// SelectBackfillCandidate scans history newest-first for the latest entry with
// date <= target holding a non-null value of the declared type. Stale candidates
// (freshness relative to target) are skipped unless AllowStale is set.
func (p *Policy) SelectBackfillCandidate(h HistoryReader, key string, target domain.Date, opts BackfillOptions) *Candidate {
	if h == nil {
		return nil
	}
	field, declared := p.schema.Field(key)
	entries := h.EntriesThrough(target)

	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if entry.Input == nil {
			continue
		}
		v := entry.Input.Get(key)
		if v.IsNull() {
			continue
		}
		if declared && v.Kind() != field.Kind {
			continue
		}

		prov := entry.Input.Provenance[key]
		observedAt := prov.ObservedAt
		if observedAt == nil {
			// Without an observation stamp the entry date is the best bound on age
			t := entry.Date.Time()
			observedAt = &t
		}
		fr := p.Classify(observedAt, target, key)
		if fr.Stale() && !opts.AllowStale {
			continue
		}

		return &Candidate{
			Value:      v,
			Date:       entry.Date,
			ObservedAt: observedAt,
			FetchedAt:  prov.FetchedAt,
			Freshness:  fr,
			Source:     prov.Source,
		}
	}
	return nil
}

// BackfillMissing fills null fields from history. A strict pass fills values; when it
// finds nothing, a stale-allowed lookup only reports that usable-looking data exists
// but is too old, without filling it.
func (p *Policy) BackfillMissing(in *domain.Input, h HistoryReader, target domain.Date) BackfillReport {
	var report BackfillReport
	if in == nil {
		return report
	}

	keys := p.schema.Keys()
	for _, k := range in.Keys() {
		if _, declared := p.schema.Field(k); !declared {
			keys = append(keys, k)
		}
	}

	for _, key := range keys {
		if !in.Get(key).IsNull() {
			continue
		}

		if c := p.SelectBackfillCandidate(h, key, target, BackfillOptions{}); c != nil {
			source := "history:" + c.Date.String()
			if c.Source != "" {
				source += ":" + c.Source
			}
			in.Set(key, c.Value, domain.FieldProvenance{
				Source:     source,
				ObservedAt: c.ObservedAt,
				FetchedAt:  c.FetchedAt,
			})
			in.Freshness[key] = c.Freshness
			in.ClearMissing(key)
			in.AddError(key, domain.DiagBackfilled, fmt.Sprintf("%s backfilled from %s (%s)", key, c.Date, c.Freshness.Level))
			report.Filled = append(report.Filled, key)
			continue
		}

		in.MarkMissing(key)
		if c := p.SelectBackfillCandidate(h, key, target, BackfillOptions{AllowStale: true}); c != nil {
			age := 0.0
			if c.Freshness.AgeDays != nil {
				age = *c.Freshness.AgeDays
			}
			in.AddError(key, domain.DiagStaleBlocked, fmt.Sprintf("%s stale-blocked: latest history value from %s is %.1f days old (half-life %.0fd)", key, c.Date, age, c.Freshness.HalfLifeDays))
			report.StaleBlocked = append(report.StaleBlocked, key)
			continue
		}

		if f, ok := p.schema.Field(key); ok && f.Required {
			in.AddError(key, domain.DiagMissing, fmt.Sprintf("%s has no data in input or history", key))
		}
		report.Missing = append(report.Missing, key)
	}
	return report
}
