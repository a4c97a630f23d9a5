package gates

import (
	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
)

// evalDistribution detects coins moving to exchanges while ETFs sell (distribution), or
// leaving exchanges while ETFs buy (accumulation).
func evalDistribution(in *domain.Input, _ *Results, cfg *config.GatesConfig) domain.GateResult {
	bar := cfg.Distribution.BalanceTrend
	b := newBuilder(in, f.KeyExchBalanceTrend, f.KeyETF5d)

	trend := in.Num(f.KeyExchBalanceTrend)
	etf5d := in.Num(f.KeyETF5d)
	dist := trend > bar && etf5d < 0
	acc := trend < -bar && etf5d > 0
	b.flag("distribution", dist)
	b.flag("accumulation", acc)

	switch {
	case dist:
		b.fire(RuleDistribution)
		b.label("distribution")
		b.status(domain.GateClosed)
		return b.done("exchange balances rising into ETF outflows")
	case acc:
		b.fire(RuleAccumulation)
		b.label("accumulation")
		return b.done("exchange balances falling with ETF inflows")
	}
	b.label("neutral")
	b.status(domain.GateWarn)
	return b.done("no distribution signal")
}
