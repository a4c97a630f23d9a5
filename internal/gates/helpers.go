package gates

import (
	"math"
	"time"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
)

// builder accumulates one gate result
type builder struct {
	r domain.GateResult
}

func newBuilder(in *domain.Input, keys ...string) *builder {
	b := &builder{r: domain.GateResult{
		Status: domain.GateOpen,
		Details: domain.GateDetails{
			Inputs:  make(map[string]domain.Value, len(keys)),
			Calc:    make(map[string]float64),
			Rules:   []string{},
			Sources: make(map[string]string),
			Timings: make(map[string]string),
		},
		Flags:  make(map[string]bool),
		Scores: make(map[string]float64),
	}}
	for _, k := range keys {
		b.r.Details.Inputs[k] = in.Get(k)
		prov := in.Provenance[k]
		if prov.Source != "" {
			b.r.Details.Sources[k] = prov.Source
		}
		if prov.ObservedAt != nil {
			b.r.Details.Timings[k] = prov.ObservedAt.UTC().Format(time.RFC3339)
		}
	}
	return b
}

func (b *builder) fire(rule string) { b.r.Details.Rules = append(b.r.Details.Rules, rule) }

func (b *builder) flag(name string, v bool) { b.r.Flags[name] = v }

func (b *builder) score(name string, v float64) {
	b.r.Scores[name] = v
	b.r.Details.Calc[name] = v
}

func (b *builder) calc(name string, v float64) { b.r.Details.Calc[name] = v }

func (b *builder) status(s domain.GateStatus) { b.r.Status = s }

func (b *builder) label(l string) { b.r.Label = l }

func (b *builder) done(note string) domain.GateResult {
	b.r.Note = note
	return b.r
}

// normalize maps x onto [0,1] over the range, clamped
func normalize(x float64, r config.Range) float64 {
	if r.Max <= r.Min {
		return 0
	}
	return clamp((x-r.Min)/(r.Max-r.Min), 0, 1)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
