package gates

import (
	"fmt"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
)

// evalMacro closes on dollar strength and forces state C when rates and financial
// conditions tighten alongside it.
func evalMacro(in *domain.Input, _ *Results, cfg *config.GatesConfig) domain.GateResult {
	c := cfg.Macro
	b := newBuilder(in, f.KeyDXY5d, f.KeyDXYUpDays, f.KeyUS2Y7dBp, f.KeyFCIUpWeeks)

	dxy5d := in.Num(f.KeyDXY5d)
	upDays := in.Num(f.KeyDXYUpDays)
	dxyTrigger := dxy5d >= c.DXY5dChangePct || upDays >= c.DXYUpDays
	yieldTrigger := in.Num(f.KeyUS2Y7dBp) >= c.US2YWeeklyBp
	fciTrigger := in.Num(f.KeyFCIUpWeeks) >= c.FCIUpWeeks

	triggers := 0
	if dxy5d >= c.DXY5dChangePct {
		b.fire(RuleDXY5d)
	}
	if upDays >= c.DXYUpDays {
		b.fire(RuleDXYUpDays)
	}
	if dxyTrigger {
		triggers++
	}
	if yieldTrigger {
		b.fire(RuleUS2YWeekly)
		triggers++
	}
	if fciTrigger {
		b.fire(RuleFCIUp)
		triggers++
	}
	forceC := triggers >= c.ForceCMinTrigger
	if forceC {
		b.fire(RuleForceC)
	}

	b.flag("closed", dxyTrigger)
	b.flag("forceC", forceC)
	b.flag("dxyTrigger", dxyTrigger)
	b.score("triggers", float64(triggers))

	switch {
	case dxyTrigger:
		b.status(domain.GateClosed)
	case triggers > 0:
		b.status(domain.GateWarn)
	}

	note := "dollar and rates quiet"
	if dxyTrigger {
		note = fmt.Sprintf("DXY %+.2f%% over 5d, %.0f up closes", dxy5d, upDays)
	} else if triggers > 0 {
		note = fmt.Sprintf("%d tightening trigger(s) without dollar confirmation", triggers)
	}
	if forceC {
		note += "; force C"
	}
	return b.done(note)
}
