package freshness

import (
	"fmt"
	"math"
	"time"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
)

// Policy decides which observed values are still usable and where gaps are filled from.
// It never returns errors: absence is a null value plus diagnostics on the input.
type Policy struct {
	schema *Schema
}

// NewPolicy creates a policy over a field schema
func NewPolicy(schema *Schema) *Policy {
	if schema == nil {
		schema = DefaultSchema()
	}
	return &Policy{schema: schema}
}

// FromConfig builds a policy from the built-in schema with configured half-life overrides
func FromConfig(cfg config.FreshnessConfig) *Policy {
	def := cfg.DefaultHalfLifeDays
	if def <= 0 {
		def = 7
	}
	return NewPolicy(NewSchema(defaultFields, def, cfg.HalfLifeDays))
}

// Schema exposes the field registry
func (p *Policy) Schema() *Schema { return p.schema }

// Classify grades a field observation relative to asOf.
// ageDays = max(0, asOf - observedAt); fresh ≤ h, aging ≤ 2h, stale beyond.
func (p *Policy) Classify(observedAt *time.Time, asOf domain.Date, key string) domain.Freshness {
	halfLife := p.schema.HalfLife(key)
	if observedAt == nil || observedAt.IsZero() {
		return domain.Freshness{Level: domain.FreshnessUnknown, HalfLifeDays: halfLife}
	}

	age := math.Max(0, asOf.Time().Sub(observedAt.UTC()).Hours()/24)
	expires := 2*halfLife - age

	level := domain.FreshnessStale
	switch {
	case age <= halfLife:
		level = domain.FreshnessFresh
	case age <= 2*halfLife:
		level = domain.FreshnessAging
	}

	return domain.Freshness{
		Level:         level,
		HalfLifeDays:  halfLife,
		AgeDays:       &age,
		ExpiresInDays: &expires,
	}
}

// ApplyStaleGate nulls every present field whose observation is stale as of asOf.
// Staleness always wins over availability. Returns the gated keys.
func (p *Policy) ApplyStaleGate(in *domain.Input, keys []string, asOf domain.Date) []string {
	if in == nil {
		return nil
	}
	if keys == nil {
		keys = in.Keys()
	}
	if in.Freshness == nil {
		in.Freshness = make(map[string]domain.Freshness)
	}

	var gated []string
	for _, key := range keys {
		v, present := in.Fields[key]
		if !present {
			continue
		}
		prov := in.Provenance[key]
		fr := p.Classify(prov.ObservedAt, asOf, key)
		in.Freshness[key] = fr

		if !fr.Stale() || v.IsNull() {
			continue
		}
		in.Fields[key] = domain.Null
		in.MarkMissing(key)
		in.AddError(key, domain.DiagStale, fmt.Sprintf("%s is stale: observed %.1f days ago (half-life %.0fd)", key, *fr.AgeDays, fr.HalfLifeDays))
		gated = append(gated, key)
	}
	return gated
}

// Validate is the single hard precondition before gates run: all required fields
// present and every declared field holding its schema type.
func (p *Policy) Validate(in *domain.Input) error {
	verr := &ValidationError{}
	blocked := make(map[string]bool)
	for _, d := range in.Diagnostics.Errors {
		if d.Kind == domain.DiagStaleBlocked || d.Kind == domain.DiagStale {
			blocked[d.Key] = true
		}
	}

	for _, key := range p.schema.Keys() {
		f, _ := p.schema.Field(key)
		v := in.Get(key)
		if v.IsNull() {
			if !f.Required {
				continue
			}
			if blocked[key] {
				verr.StaleBlocked = append(verr.StaleBlocked, key)
			} else {
				verr.Missing = append(verr.Missing, key)
			}
			continue
		}
		if v.Kind() != f.Kind {
			verr.TypeMismatch = append(verr.TypeMismatch, key)
		}
	}

	if verr.empty() {
		return nil
	}
	return verr
}
