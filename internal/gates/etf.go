package gates

import (
	"fmt"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
)

func evalETF(in *domain.Input, _ *Results, cfg *config.GatesConfig) domain.GateResult {
	b := newBuilder(in, f.KeyETF1d, f.KeyETF5d, f.KeyVolumeConfirmed)

	etf1d := in.Num(f.KeyETF1d)
	etf5d := in.Num(f.KeyETF5d)
	red := etf5d <= cfg.ETF.FiveDayRedMax
	breakout := (etf1d > 0 || etf5d > 0) && in.Flag(f.KeyVolumeConfirmed)

	b.flag("fiveDayRed", red)
	b.flag("breakoutValidated", breakout)
	switch {
	case red:
		b.fire(RuleFiveDayRed)
		b.status(domain.GateClosed)
	case breakout:
		b.fire(RuleBreakout)
	default:
		b.status(domain.GateWarn)
	}
	return b.done(fmt.Sprintf("ETF flows 1d %+.0fM, 5d %+.0fM", etf1d, etf5d))
}
