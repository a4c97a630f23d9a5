package freshness

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	"github.com/sawpanic/riskgate/internal/history"
)

var asOf = domain.MustDate("2024-03-10")

func daysAgo(d float64) *time.Time {
	t := asOf.Time().Add(-time.Duration(d * 24 * float64(time.Hour)))
	return &t
}

func TestClassifyLevels(t *testing.T) {
	p := NewPolicy(nil)
	// dxy5d has a 3 day half-life
	tests := []struct {
		name  string
		age   float64
		level domain.FreshnessLevel
	}{
		{"same day", 0, domain.FreshnessFresh},
		{"at half-life", 3, domain.FreshnessFresh},
		{"aging", 4.5, domain.FreshnessAging},
		{"at twice half-life", 6, domain.FreshnessAging},
		{"stale", 6.5, domain.FreshnessStale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := p.Classify(daysAgo(tt.age), asOf, KeyDXY5d)
			assert.Equal(t, tt.level, fr.Level)
			assert.Equal(t, 3.0, fr.HalfLifeDays)
			require.NotNil(t, fr.AgeDays)
			assert.InDelta(t, tt.age, *fr.AgeDays, 1e-9)
			assert.InDelta(t, 6-tt.age, *fr.ExpiresInDays, 1e-9)
		})
	}
}

func TestClassifyUnknownAndFuture(t *testing.T) {
	p := NewPolicy(nil)
	fr := p.Classify(nil, asOf, KeyDXY5d)
	assert.Equal(t, domain.FreshnessUnknown, fr.Level)
	assert.Nil(t, fr.AgeDays)

	future := asOf.Time().Add(36 * time.Hour)
	fr = p.Classify(&future, asOf, KeyDXY5d)
	assert.Equal(t, domain.FreshnessFresh, fr.Level)
	assert.Equal(t, 0.0, *fr.AgeDays)
}

func TestClassifyIsMonotonic(t *testing.T) {
	p := NewPolicy(nil)
	rank := map[domain.FreshnessLevel]int{domain.FreshnessFresh: 0, domain.FreshnessAging: 1, domain.FreshnessStale: 2}
	prev := -1
	for age := 0.0; age <= 30; age += 0.25 {
		r := rank[p.Classify(daysAgo(age), asOf, KeyETF5d).Level]
		assert.GreaterOrEqual(t, r, prev, "age %.2f", age)
		prev = r
	}
}

func TestFromConfigOverridesHalfLife(t *testing.T) {
	p := FromConfig(config.FreshnessConfig{DefaultHalfLifeDays: 9, HalfLifeDays: map[string]float64{KeyDXY5d: 10}})
	assert.Equal(t, 10.0, p.Schema().HalfLife(KeyDXY5d))
	assert.Equal(t, 9.0, p.Schema().HalfLife("undeclared"))
	assert.Equal(t, domain.FreshnessFresh, p.Classify(daysAgo(8), asOf, KeyDXY5d).Level)
}

func TestApplyStaleGateNullsStaleValues(t *testing.T) {
	p := NewPolicy(nil)
	in := domain.NewInput(asOf)
	in.Set(KeyDXY5d, domain.Number(1.1), domain.FieldProvenance{ObservedAt: daysAgo(10)})
	in.Set(KeyMcapGrowth, domain.Number(0.5), domain.FieldProvenance{ObservedAt: daysAgo(10)})
	in.Set(KeyETF5d, domain.Null, domain.FieldProvenance{ObservedAt: daysAgo(30)})

	gated := p.ApplyStaleGate(in, nil, asOf)
	assert.Equal(t, []string{KeyDXY5d}, gated)
	assert.True(t, in.Get(KeyDXY5d).IsNull())
	assert.Contains(t, in.Diagnostics.Missing, KeyDXY5d)
	require.Len(t, in.ErrorsOfKind(domain.DiagStale), 1)
	assert.Equal(t, 0.5, in.Num(KeyMcapGrowth))

	for _, k := range in.Keys() {
		v := in.Get(k)
		if !v.IsNull() {
			assert.False(t, in.Freshness[k].Stale(), "%s survived the gate while stale", k)
		}
	}
}

func entry(date domain.Date, key string, v domain.Value, observed *time.Time) domain.HistoryEntry {
	in := domain.NewInput(date)
	in.Set(key, v, domain.FieldProvenance{Source: "feed", ObservedAt: observed})
	return domain.HistoryEntry{Date: date, Input: in}
}

func TestSelectBackfillCandidate(t *testing.T) {
	p := NewPolicy(nil)
	h := history.New(
		entry("2024-03-01", KeyETF5d, domain.Number(-100), daysAgo(9)),
		entry("2024-03-08", KeyETF5d, domain.Number(200), daysAgo(2)),
		entry("2024-03-09", KeyETF5d, domain.Bool(true), daysAgo(1)),
		entry("2024-03-12", KeyETF5d, domain.Number(999), daysAgo(-2)),
	)

	c := p.SelectBackfillCandidate(h, KeyETF5d, asOf, BackfillOptions{})
	require.NotNil(t, c)
	assert.Equal(t, domain.Date("2024-03-08"), c.Date, "wrong-type and future entries are skipped")
	assert.True(t, c.Value.Equal(domain.Number(200)))

	stale := history.New(entry("2024-03-01", KeyETF5d, domain.Number(-100), daysAgo(9)))
	assert.Nil(t, p.SelectBackfillCandidate(stale, KeyETF5d, asOf, BackfillOptions{}))
	c = p.SelectBackfillCandidate(stale, KeyETF5d, asOf, BackfillOptions{AllowStale: true})
	require.NotNil(t, c)
	assert.True(t, c.Freshness.Stale())

	assert.Nil(t, p.SelectBackfillCandidate(nil, KeyETF5d, asOf, BackfillOptions{}))
}

func TestBackfillCandidatesAreNeverStale(t *testing.T) {
	p := NewPolicy(nil)
	var entries []domain.HistoryEntry
	for i := 0; i < 20; i++ {
		d := asOf.AddDays(-i)
		entries = append(entries, entry(d, KeyETF5d, domain.Number(float64(i)), daysAgo(float64(i))))
	}
	h := history.New(entries...)
	for i := 0; i < 30; i++ {
		target := asOf.AddDays(-i)
		if c := p.SelectBackfillCandidate(h, KeyETF5d, target, BackfillOptions{}); c != nil {
			assert.False(t, c.Freshness.Stale())
			assert.False(t, c.Date.After(target))
		}
	}
}

func TestBackfillMissing(t *testing.T) {
	p := NewPolicy(nil)
	h := history.New(
		entry("2024-03-08", KeyMcapGrowth, domain.Number(0.45), daysAgo(2)),
		entry("2024-03-01", KeyETF1d, domain.Number(-50), daysAgo(9)),
	)
	in := domain.NewInput(asOf)
	in.Set(KeyMcapGrowth, domain.Null, domain.FieldProvenance{})

	rep := p.BackfillMissing(in, h, asOf)
	assert.Contains(t, rep.Filled, KeyMcapGrowth)
	assert.Contains(t, rep.StaleBlocked, KeyETF1d)
	assert.Contains(t, rep.Missing, KeyBTCPrice)

	assert.Equal(t, 0.45, in.Num(KeyMcapGrowth))
	assert.Equal(t, "history:2024-03-08:feed", in.Provenance[KeyMcapGrowth].Source)
	assert.NotContains(t, in.Diagnostics.Missing, KeyMcapGrowth)
	assert.True(t, in.Get(KeyETF1d).IsNull(), "a stale candidate never fills")

	kinds := map[domain.DiagnosticKind]bool{}
	for _, d := range in.Diagnostics.Errors {
		kinds[d.Kind] = true
	}
	assert.True(t, kinds[domain.DiagBackfilled])
	assert.True(t, kinds[domain.DiagStaleBlocked])
	assert.True(t, kinds[domain.DiagMissing])
}

func TestMergePreferFresh(t *testing.T) {
	p := NewPolicy(nil)
	base := domain.NewInput(asOf)
	base.Set(KeyETF5d, domain.Number(100), domain.FieldProvenance{Source: "base", ObservedAt: daysAgo(1)})
	base.Set(KeyDXY5d, domain.Number(0.4), domain.FieldProvenance{Source: "base", ObservedAt: daysAgo(1)})
	base.Set(KeyETF1d, domain.Number(5), domain.FieldProvenance{Source: "base", ObservedAt: daysAgo(10)})

	incoming := domain.NewInput(asOf)
	incoming.Set(KeyETF5d, domain.Number(300), domain.FieldProvenance{Source: "incoming", ObservedAt: daysAgo(0)})
	incoming.Set(KeyDXY5d, domain.Number(0.9), domain.FieldProvenance{Source: "incoming", ObservedAt: daysAgo(20)})

	out := p.MergePreferFresh(base, incoming, nil, asOf)
	assert.Equal(t, 300.0, out.Num(KeyETF5d), "incoming wins when both are fresh")
	assert.Equal(t, "incoming", out.Provenance[KeyETF5d].Source)
	assert.Equal(t, 0.4, out.Num(KeyDXY5d), "stale incoming loses to fresh base")
	assert.Equal(t, "base", out.Provenance[KeyDXY5d].Source)
	assert.True(t, out.Get(KeyETF1d).IsNull(), "no fresh side forces null")
	assert.Contains(t, out.Diagnostics.Missing, KeyETF1d)

	assert.Equal(t, 100.0, base.Num(KeyETF5d), "inputs are not mutated")
}

func TestMergeDropsBaseDiagnosticsForReplacedKeys(t *testing.T) {
	p := NewPolicy(nil)
	base := domain.NewInput(asOf)
	base.Set(KeyETF1d, domain.Number(-50), domain.FieldProvenance{Source: "history:2024-03-09:feed", ObservedAt: daysAgo(1)})
	base.AddError(KeyETF1d, domain.DiagBackfilled, "etf1d backfilled from 2024-03-09 (fresh)")
	base.Set(KeyETF5d, domain.Null, domain.FieldProvenance{})
	base.MarkMissing(KeyETF5d)
	base.AddError(KeyETF5d, domain.DiagStaleBlocked, "etf5d stale-blocked")
	base.Set(KeyDXY5d, domain.Number(0.2), domain.FieldProvenance{Source: "feed", ObservedAt: daysAgo(1)})
	base.AddError(KeyDXY5d, domain.DiagBackfilled, "kept")

	incoming := domain.NewInput(asOf)
	incoming.Set(KeyETF1d, domain.Number(20), domain.FieldProvenance{Source: "live", ObservedAt: daysAgo(0)})
	incoming.Set(KeyETF5d, domain.Number(300), domain.FieldProvenance{Source: "live", ObservedAt: daysAgo(0)})

	out := p.MergePreferFresh(base, incoming, nil, asOf)
	assert.Equal(t, "live", out.Provenance[KeyETF1d].Source)
	assert.Empty(t, out.ErrorsOfKind(domain.DiagStaleBlocked))
	backfilled := out.ErrorsOfKind(domain.DiagBackfilled)
	require.Len(t, backfilled, 1, "only the key still taken from base keeps its note")
	assert.Equal(t, KeyDXY5d, backfilled[0].Key)
	assert.NotContains(t, out.Diagnostics.Missing, KeyETF5d)
	assert.Len(t, base.Diagnostics.Errors, 3, "base is not mutated")
}

func TestMergeIdempotentAndNullIdentity(t *testing.T) {
	p := NewPolicy(nil)
	a := domain.NewInput(asOf)
	a.Set(KeyETF5d, domain.Number(100), domain.FieldProvenance{Source: "a", ObservedAt: daysAgo(1)})
	a.Set(KeyVolumeConfirmed, domain.Bool(true), domain.FieldProvenance{Source: "a", ObservedAt: daysAgo(0)})

	self := p.MergePreferFresh(a, a, nil, asOf)
	assert.Equal(t, a.Fields, self.Fields)
	assert.Equal(t, a.Provenance, self.Provenance)

	nulls := domain.NewInput(asOf)
	for _, k := range a.Keys() {
		nulls.Set(k, domain.Null, domain.FieldProvenance{})
	}
	merged := p.MergePreferFresh(a, nulls, nil, asOf)
	assert.Equal(t, a.Fields, merged.Fields)
	assert.Equal(t, a.Provenance, merged.Provenance)
}

func TestValidate(t *testing.T) {
	p := NewPolicy(nil)
	in := domain.NewInput(asOf)
	for _, k := range p.Schema().Required() {
		f, _ := p.Schema().Field(k)
		if f.Kind == domain.KindBool {
			in.Set(k, domain.Bool(false), domain.FieldProvenance{})
		} else {
			in.Set(k, domain.Number(1), domain.FieldProvenance{})
		}
	}
	require.NoError(t, p.Validate(in))

	in.Set(KeyBTCPrice, domain.Null, domain.FieldProvenance{})
	in.Set(KeyPolicyWindow, domain.Number(1), domain.FieldProvenance{})
	in.Set(KeyETF5d, domain.Null, domain.FieldProvenance{})
	in.AddError(KeyETF5d, domain.DiagStaleBlocked, "too old")

	err := p.Validate(in)
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{KeyBTCPrice}, verr.Missing)
	assert.Equal(t, []string{KeyETF5d}, verr.StaleBlocked)
	assert.Equal(t, []string{KeyPolicyWindow}, verr.TypeMismatch)
	assert.ElementsMatch(t, []string{KeyBTCPrice, KeyETF5d, KeyPolicyWindow}, verr.Keys())
	assert.Contains(t, err.Error(), "stale-blocked [etf5d]")
}
