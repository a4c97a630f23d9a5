package evaluation

import (
	"fmt"
	"sort"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
)

// Drift compares rolling accuracy on the drift horizon to the baseline.
// Fewer matured rows than MinSamples yields an unknown signal with no degradation.
func Drift(rows []Row, cfg config.DriftConfig) domain.DriftSignal {
	var matured []Row
	for _, r := range rows {
		if r.Horizon == cfg.Horizon && r.Matured() {
			matured = append(matured, r)
		}
	}
	sort.SliceStable(matured, func(i, j int) bool { return matured[i].Date > matured[j].Date })
	if len(matured) > cfg.Window {
		matured = matured[:cfg.Window]
	}

	if len(matured) < cfg.MinSamples {
		sig := domain.UnknownDrift(cfg.Baseline, fmt.Sprintf("%d matured samples, need %d", len(matured), cfg.MinSamples))
		sig.Horizon = cfg.Horizon
		sig.SampleSize = len(matured)
		return sig
	}

	hits := 0
	for _, r := range matured {
		if r.Verdict == VerdictHit {
			hits++
		}
	}
	acc := float64(hits) / float64(len(matured))
	gap := cfg.Baseline - acc

	sig := domain.DriftSignal{
		Level:          domain.DriftOK,
		Horizon:        cfg.Horizon,
		Accuracy:       &acc,
		Baseline:       cfg.Baseline,
		SampleSize:     len(matured),
		HitCount:       hits,
		BetaMultiplier: 1,
	}
	switch {
	case gap >= cfg.DangerGap:
		sig.Level, sig.BetaMultiplier = domain.DriftDanger, cfg.DangerMult
	case gap >= cfg.WarnGap:
		sig.Level, sig.BetaMultiplier = domain.DriftWarn, cfg.WarnMult
	}
	sig.Note = fmt.Sprintf("%dD accuracy %.2f over %d samples vs baseline %.2f", cfg.Horizon, acc, len(matured), cfg.Baseline)
	return sig
}

// DriftAsOf evaluates entries and derives the drift signal in one call
func (e *Engine) DriftAsOf(entries []domain.HistoryEntry, seed PriceSeed, asOf domain.Date, cfg config.DriftConfig) domain.DriftSignal {
	return Drift(e.Evaluate(entries, seed, asOf).Rows, cfg)
}
