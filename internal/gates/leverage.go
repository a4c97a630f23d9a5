package gates

import (
	"fmt"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
)

// evalLeverage owns both leverage beta penalties. The decision stage reads these flags
// and never recomputes them.
func evalLeverage(in *domain.Input, _ *Results, cfg *config.GatesConfig) domain.GateResult {
	c := cfg.Leverage
	b := newBuilder(in, f.KeyLiquidationUSD, f.KeyCrowdingIndex, f.KeyETF10d)

	liq := in.Num(f.KeyLiquidationUSD)
	crowding := in.Num(f.KeyCrowdingIndex)
	half := liq > c.LiquidationHalfUSD
	third := crowding >= c.CrowdingThird && in.Num(f.KeyETF10d) <= c.ETF10dThirdMax

	b.flag("betaPenaltyHalf", half)
	b.flag("betaPenaltyThird", third)
	b.calc("liquidationUsd", liq)
	b.calc("crowdingIndex", crowding)

	switch {
	case half:
		b.fire(RuleLiquidationHalf)
		b.status(domain.GateClosed)
	case third:
		b.status(domain.GateWarn)
	}
	if third {
		b.fire(RuleCrowdingThird)
	}
	return b.done(fmt.Sprintf("liquidations $%.0fM, crowding %.0f", liq/1e6, crowding))
}
