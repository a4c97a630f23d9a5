package gates

import (
	"fmt"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
)

// evalSVC scores structural value conviction and shifts the beta cap by one notch.
func evalSVC(in *domain.Input, _ *Results, cfg *config.GatesConfig) domain.GateResult {
	c := cfg.SVC
	b := newBuilder(in, f.KeyRSD, f.KeyLSTC)

	score := (in.Num(f.KeyRSD) + in.Num(f.KeyLSTC)) / 2
	shift, mult := 0.0, 1.0
	switch {
	case score >= c.ShiftUpAt:
		shift, mult = 1, c.ConfidenceUp
		b.fire(RuleSVCUp)
	case score <= c.ShiftDownAt:
		shift, mult = -1, c.ConfidenceDown
		b.fire(RuleSVCDown)
		b.status(domain.GateClosed)
	default:
		b.status(domain.GateWarn)
	}
	b.score("score", score)
	b.score("capShift", shift)
	b.score("confidenceMultiplier", mult)
	return b.done(fmt.Sprintf("SVC %.1f, cap shift %+.0f", score, shift))
}
