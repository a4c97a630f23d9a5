package decision

import (
	"fmt"

	"github.com/sawpanic/riskgate/internal/domain"
	"github.com/sawpanic/riskgate/internal/gates"
)

// reasonPriority ranks fired rules from most to least decision-relevant
var reasonPriority = []struct {
	rule string
	text string
}{
	{gates.RuleTripleHit, "triple hit: macro, liquidity and ETF gates all closed"},
	{gates.RuleForceC, "macro forces state C"},
	{gates.RuleDXY5d, "dollar up at least 1% over 5 days"},
	{gates.RuleDXYUpDays, "dollar printed consecutive up closes"},
	{gates.RuleLiquidityRed, "liquidity score in the red"},
	{gates.RuleFiveDayRed, "ETF 5-day outflows in the red"},
	{gates.RuleLiquidationHalf, "liquidations above $1B halve beta"},
	{gates.RuleCrowdingThird, "crowded leverage without ETF support"},
	{gates.RuleRiskOn, "risk-on inside the policy window"},
	{gates.RuleBreakout, "ETF breakout confirmed by volume"},
	{gates.RuleDistribution, "exchange distribution into ETF outflows"},
	{gates.RuleAccumulation, "exchange accumulation with ETF inflows"},
	{gates.RulePhaseLateDiv, "late-cycle divergence"},
	{gates.RulePhaseUpMid, "uptrend mid-phase transition passed"},
	{gates.RuleBubble, "supply bubble warning"},
	{gates.RuleSVCDown, "weak structural value conviction"},
	{gates.RuleSVCUp, "strong structural value conviction"},
	{gates.RuleATAFTight, "policy plumbing tightening"},
	{gates.RuleATAFLoose, "policy plumbing easing"},
	{gates.RuleBCMConflict, "bull/bear signals in conflict"},
	{gates.RuleLiquidityWarn, "liquidity below neutral"},
	{gates.RuleUS2YWeekly, "2Y yield up 10bp on the week"},
	{gates.RuleFCIUp, "financial conditions tightening for 2+ weeks"},
	{gates.RulePhaseReversal, "reversal signal in the dip"},
	{gates.RuleTriAllow, "macro, flow and on-chain all clear the bar"},
	{gates.RuleBEPass, "breakout potential above the sentiment bar"},
}

// ReasonsTop3 returns up to three reasons in priority order
func ReasonsTop3(list []domain.GateResult, bias float64, s domain.State) []string {
	fired := make(map[string]bool)
	for _, g := range list {
		for _, r := range g.Details.Rules {
			fired[r] = true
		}
	}
	out := make([]string, 0, 3)
	for _, p := range reasonPriority {
		if fired[p.rule] {
			out = append(out, p.text)
		}
		if len(out) == 3 {
			return out
		}
	}
	if len(out) == 0 {
		out = append(out, fmt.Sprintf("state %s from bias %.1f", s, bias))
	}
	return out
}

// RiskNotes lists the penalties, model risk, execution and data-quality caveats
func RiskNotes(p Penalties, drift domain.DriftSignal, exec domain.ExecutionSummary, in *domain.Input) []string {
	var notes []string
	if p.Half {
		notes = append(notes, "beta halved: liquidations above threshold")
	}
	if p.Third {
		notes = append(notes, "beta cut by a third: crowded leverage")
	}
	if p.ExtremeOutflow {
		notes = append(notes, "beta cut: prior-day extreme ETF outflow")
	}
	switch drift.Level {
	case domain.DriftDanger, domain.DriftWarn:
		notes = append(notes, fmt.Sprintf("model drift %s: %s (beta ×%.2f)", drift.Level, drift.Note, drift.BetaMultiplier))
	}
	if exec.Level != domain.ExecutionOK {
		notes = append(notes, fmt.Sprintf("execution cost %s: pressure %.2f (beta ×%.2f)", exec.Level, exec.CostPressure, exec.Multiplier))
	}
	for _, d := range in.ErrorsOfKind(domain.DiagStaleBlocked) {
		notes = append(notes, "stale-blocked: "+d.Key)
	}
	for _, d := range in.ErrorsOfKind(domain.DiagBackfilled) {
		notes = append(notes, "backfilled: "+d.Key)
	}
	return notes
}
