package decision

import (
	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
	"github.com/sawpanic/riskgate/internal/gates"
)

// Bias blends liquidity, flows, policy and pressure into a 0..100 score
func Bias(in *domain.Input, res *gates.Results, cfg config.DecisionConfig) float64 {
	liq := res.Score(gates.IDLiquidity, "score")
	bias := cfg.BiasNeutral + cfg.BiasLiquidityWeight*(liq-cfg.BiasNeutral)
	if in.Num(f.KeyETF10d) > 0 {
		bias += cfg.BiasETF10dStep
	} else {
		bias -= cfg.BiasETF10dStep
	}
	if res.Flag(gates.IDRiskOn, "on") {
		bias += cfg.BiasRiskOn
	}
	bias += cfg.BiasBPIWeight * (res.Score(gates.IDBPI, "strength") - cfg.BiasBPIPivot)
	if res.Flag(gates.IDMacro, "closed") {
		bias -= cfg.BiasMacroClosed
	}
	if res.Flag(gates.IDLeverage, "betaPenaltyHalf") {
		bias -= cfg.BiasLiquidationHalf
	}
	bias -= cfg.BiasDangerPerHit * res.Score(gates.IDDanger, "riskWeight")
	return clamp(bias, 0, 100)
}

// DeriveState maps the bias to a state. forceC and tripleHit override it.
func DeriveState(bias float64, res *gates.Results, cfg config.DecisionConfig) domain.State {
	switch {
	case res.Flag(gates.IDMacro, "forceC"), res.Flag(gates.IDDanger, "tripleHit"):
		return domain.StateC
	case bias >= cfg.BiasA:
		return domain.StateA
	case bias <= cfg.BiasC:
		return domain.StateC
	}
	return domain.StateB
}

// ApplyStateCaps keeps a closed macro gate out of state A
func ApplyStateCaps(s domain.State, res *gates.Results) domain.State {
	if s == domain.StateA && res.Flag(gates.IDMacro, "closed") {
		return domain.StateB
	}
	return s
}

// ApplyDriftDegrade demotes the state when the model has been wrong lately:
// danger demotes one step, warn only demotes A.
func ApplyDriftDegrade(s domain.State, drift domain.DriftSignal) domain.State {
	switch drift.Level {
	case domain.DriftDanger:
		return demote(s)
	case domain.DriftWarn:
		if s == domain.StateA {
			return domain.StateB
		}
	}
	return s
}

func demote(s domain.State) domain.State {
	switch s {
	case domain.StateA:
		return domain.StateB
	case domain.StateB:
		return domain.StateC
	}
	return domain.StateC
}
