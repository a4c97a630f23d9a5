package gates

import (
	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
)

func evalSupply(in *domain.Input, _ *Results, cfg *config.GatesConfig) domain.GateResult {
	c := cfg.Supply
	b := newBuilder(in, f.KeyMcapElasticity, f.KeyMcapGrowth, f.KeyExchBalanceTrend)

	bubble := in.Num(f.KeyMcapElasticity) > c.MinElasticity &&
		in.Num(f.KeyMcapGrowth) > c.MinMcapGrowth &&
		in.Num(f.KeyExchBalanceTrend) > c.MinExchBalanceTrend
	b.flag("bubbleWarning", bubble)
	if bubble {
		b.fire(RuleBubble)
		b.status(domain.GateWarn)
		return b.done("market cap expanding faster than supply absorbs")
	}
	return b.done("supply balanced")
}
