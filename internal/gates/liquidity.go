package gates

import (
	"fmt"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
)

// LiquidityScore blends ETF, stablecoin and exchange stablecoin flows into 0..100.
func LiquidityScore(in *domain.Input, c config.LiquidityGate) (score float64, parts map[string]float64) {
	etf := normalize(in.Num(f.KeyETF10d), c.ETF10dRange)
	stable := normalize(in.Num(f.KeyStablecoin30d), c.Stable30dRange)
	exch := normalize(in.Num(f.KeyExchStableDelta), c.ExchStableRange)
	score = 100 * (c.ETF10dWeight*etf + c.Stable30dWeight*stable + c.ExchStableWt*exch)
	return score, map[string]float64{"etf10dNorm": etf, "stable30dNorm": stable, "exchStableNorm": exch}
}

func evalLiquidity(in *domain.Input, _ *Results, cfg *config.GatesConfig) domain.GateResult {
	c := cfg.Liquidity
	b := newBuilder(in, f.KeyETF10d, f.KeyStablecoin30d, f.KeyExchStableDelta)

	score, parts := LiquidityScore(in, c)
	for k, v := range parts {
		b.calc(k, v)
	}
	b.score("score", score)

	red := score < c.RedBelow
	b.flag("red", red)
	switch {
	case red:
		b.fire(RuleLiquidityRed)
		b.status(domain.GateClosed)
	case score < c.WarnBelow:
		b.fire(RuleLiquidityWarn)
		b.status(domain.GateWarn)
	}
	return b.done(fmt.Sprintf("liquidity score %.1f", score))
}
