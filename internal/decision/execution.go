package decision

import (
	"math"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
)

// Execution estimates turnover cost against expected edge and returns the throttle.
// previousBeta is nil when there is no prior decision, which means zero turnover.
func Execution(betaRaw float64, previousBeta *float64, confidence float64, cfg config.ExecutionConfig) domain.ExecutionSummary {
	turnover := 0.0
	if previousBeta != nil {
		turnover = math.Abs(betaRaw - *previousBeta)
	}
	cost := turnover * cfg.CostBps / 100
	edge := math.Max(cfg.MinEdgePct, math.Max(0, confidence-cfg.ConfidencePivot)*cfg.EdgeSlope)
	pressure := cost / edge

	sum := domain.ExecutionSummary{
		PreviousBeta:    previousBeta,
		Turnover:        turnover,
		CostBps:         cfg.CostBps,
		ExpectedCostPct: cost,
		EdgePct:         edge,
		CostPressure:    pressure,
		Level:           domain.ExecutionOK,
		Multiplier:      1,
	}
	switch {
	case pressure >= cfg.HighPressure:
		sum.Level, sum.Multiplier = domain.ExecutionHigh, cfg.HighMult
	case pressure >= cfg.MediumPressure:
		sum.Level, sum.Multiplier = domain.ExecutionMedium, cfg.MediumMult
	}
	return sum
}
