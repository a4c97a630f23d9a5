package decision

import (
	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	"github.com/sawpanic/riskgate/internal/gates"
)

// Confidence scores how much the gates agree with the chosen state
func Confidence(s domain.State, res *gates.Results, cfg config.DecisionConfig) float64 {
	c := cfg.ConfidenceBase
	if res.Flag(gates.IDRiskOn, "on") {
		c += cfg.ConfidenceRiskOn
	}
	if res.Flag(gates.IDETF, "breakoutValidated") {
		c += cfg.ConfidenceBreakout
	}
	if res.Flag(gates.IDMacro, "closed") {
		c -= cfg.ConfidenceMacro
	}
	c -= cfg.ConfidenceDanger * res.Score(gates.IDDanger, "riskWeight")

	if mult := res.Score(gates.IDSVC, "confidenceMultiplier"); mult > 0 {
		c *= mult
	}
	if distributionAgrees(s, res) {
		c += cfg.DistributionBoost
	}
	if res.Flag(gates.IDPhase, "reversal") {
		c += cfg.PhaseReversalBoost
	}
	return clamp(c, cfg.ConfidenceMin, cfg.ConfidenceMax)
}

func distributionAgrees(s domain.State, res *gates.Results) bool {
	switch s {
	case domain.StateC:
		return res.Flag(gates.IDDistribution, "distribution")
	case domain.StateA:
		return res.Flag(gates.IDDistribution, "accumulation")
	}
	return false
}
