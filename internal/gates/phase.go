package gates

import (
	"fmt"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
)

func evalPhase(in *domain.Input, _ *Results, cfg *config.GatesConfig) domain.GateResult {
	c := cfg.Phase
	b := newBuilder(in, f.KeyTrendScore, f.KeyDivergenceScore, f.KeyReversalSignal)

	trend := in.Num(f.KeyTrendScore)
	div := in.Num(f.KeyDivergenceScore)
	reversal := in.Flag(f.KeyReversalSignal)
	b.calc("trend", trend)
	b.calc("divergence", div)

	var phase string
	switch {
	case trend > c.TrendUpMid && div < c.DivergenceUpMidMax:
		phase = PhaseUpMid
		b.fire(RulePhaseUpMid)
	case div > c.DivergenceLate:
		phase = PhaseLateDiv
		b.fire(RulePhaseLateDiv)
		b.status(domain.GateClosed)
	default:
		phase = PhaseBTDBTR
		b.status(domain.GateWarn)
	}
	if reversal && phase == PhaseBTDBTR {
		b.fire(RulePhaseReversal)
	}
	b.label(phase)
	b.flag("transitionPassed", phase == PhaseUpMid)
	b.flag("reversal", reversal && phase == PhaseBTDBTR)
	return b.done(fmt.Sprintf("%s (trend %.2f, divergence %.2f)", phase, trend, div))
}
