package gates

import (
	"fmt"

	"github.com/sawpanic/riskgate/internal/domain"
)

// hpmLabels maps state|phase|triAllow to a narrative label. "*" matches either tri value.
var hpmLabels = map[string]string{
	"A|" + PhaseUpMid + "|true":  "trend continuation, full participation",
	"A|" + PhaseUpMid + "|false": "trend intact, cross-domain support thin",
	"A|" + PhaseBTDBTR + "|*":    "dip recovery, add on confirmation",
	"A|" + PhaseLateDiv + "|*":   "late-cycle divergence, trim into strength",
	"B|" + PhaseUpMid + "|true":  "constructive but capped",
	"B|" + PhaseUpMid + "|false": "uptrend without breadth, stay measured",
	"B|" + PhaseBTDBTR + "|*":    "range rebuild, wait for confirmation",
	"B|" + PhaseLateDiv + "|*":   "distribution risk building",
	"C|" + PhaseUpMid + "|*":     "trend masked by macro stress",
	"C|" + PhaseBTDBTR + "|*":    "defensive, dips not yet bought",
	"C|" + PhaseLateDiv + "|*":   "risk-off, divergence confirmed",
}

// HPMLabel looks up the post-decision narrative label
func HPMLabel(state domain.State, phase string, triAllow bool) string {
	if l, ok := hpmLabels[fmt.Sprintf("%s|%s|%t", state, phase, triAllow)]; ok {
		return l
	}
	if l, ok := hpmLabels[fmt.Sprintf("%s|%s|*", state, phase)]; ok {
		return l
	}
	return "unclassified"
}

// EvaluateHPM runs the post-decision gate. It has no numeric effect.
func EvaluateHPM(state domain.State, phase string, triAllow bool) domain.GateResult {
	label := HPMLabel(state, phase, triAllow)
	return domain.GateResult{
		ID:     IDHPM,
		Name:   "HPM",
		Status: domain.GateOpen,
		Note:   label,
		Label:  label,
		Details: domain.GateDetails{
			Inputs: map[string]domain.Value{"triAllow": domain.Bool(triAllow)},
			Calc:   map[string]float64{},
			Rules:  []string{},
		},
		Flags:  map[string]bool{},
		Scores: map[string]float64{},
	}
}
