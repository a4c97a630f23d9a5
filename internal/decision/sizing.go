package decision

import (
	"math"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
)

// Penalties are the beta haircuts in force for one date
type Penalties struct {
	Third          bool
	Half           bool
	ExtremeOutflow bool
}

// BetaCap is the per-state ceiling shifted by the SVC gate, clamped to [CapMin, CapMax]
func BetaCap(s domain.State, capShift float64, cfg config.DecisionConfig) float64 {
	return clamp(cfg.BetaCap[string(s)]+cfg.CapShift*capShift, cfg.CapMin, cfg.CapMax)
}

// BetaRaw is the base beta after penalties and the drift multiplier, before the
// execution throttle and the cap.
func BetaRaw(s domain.State, p Penalties, driftMult float64, cfg config.DecisionConfig) float64 {
	beta := cfg.BetaBase[string(s)]
	if p.Third {
		beta *= cfg.PenaltyThird
	}
	if p.Half {
		beta *= cfg.PenaltyHalf
	}
	if p.ExtremeOutflow {
		beta *= cfg.PenaltyExtremeOutflow
	}
	return math.Max(0, beta*driftMult)
}

// FinalBeta applies the execution multiplier and clamps to [0, cap]
func FinalBeta(raw, execMult, betaCap float64) float64 {
	return clamp(raw*execMult, 0, betaCap)
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	return math.Max(lo, math.Min(hi, x))
}
