package gates

import (
	"fmt"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
)

// evalDanger aggregates the macro, liquidity, ETF and leverage outcomes.
func evalDanger(in *domain.Input, prior *Results, cfg *config.GatesConfig) domain.GateResult {
	c := cfg.Danger
	b := newBuilder(in)

	macro := prior.Flag(IDMacro, "closed")
	liq := prior.Flag(IDLiquidity, "red")
	etf := prior.Flag(IDETF, "fiveDayRed")
	liquidation := prior.Flag(IDLeverage, "betaPenaltyHalf")

	hits := 0
	for _, hit := range []bool{macro, liq, etf} {
		if hit {
			hits++
		}
	}
	triple := hits == 3
	tail := c.MacroWeight*boolScore(macro) + c.LiquidityWeight*boolScore(liq) +
		c.ETFWeight*boolScore(etf) + c.LiquidationWeight*boolScore(liquidation)

	b.flag("tripleHit", triple)
	b.score("riskWeight", float64(hits))
	b.score("tailRisk", tail)

	switch {
	case triple:
		b.fire(RuleTripleHit)
		b.status(domain.GateClosed)
	case hits > 0 || liquidation:
		b.status(domain.GateWarn)
	}
	return b.done(fmt.Sprintf("%d/3 core gates hit, tail risk %.2f", hits, tail))
}
