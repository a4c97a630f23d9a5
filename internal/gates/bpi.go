package gates

import (
	"fmt"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
)

// evalBPI measures buy-side pressure. Reads the liquidity score.
func evalBPI(in *domain.Input, prior *Results, cfg *config.GatesConfig) domain.GateResult {
	b := newBuilder(in, f.KeyBuyWallScore, f.KeySupplyScore, f.KeyLeverageHealth)

	liq := prior.Score(IDLiquidity, "score")
	sum := in.Num(f.KeyBuyWallScore) + liq + in.Num(f.KeySupplyScore) + in.Num(f.KeyLeverageHealth)
	strength := clamp(sum/400, 0, 1)
	b.calc("liquidityScore", liq)
	b.score("strength", strength)

	switch {
	case strength < cfg.BPI.ClosedBelow:
		b.status(domain.GateClosed)
	case strength < cfg.BPI.WarnBelow:
		b.status(domain.GateWarn)
	}
	return b.done(fmt.Sprintf("buy pressure %.2f", strength))
}
