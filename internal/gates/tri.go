package gates

import (
	"fmt"
	"math"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
)

func evalTriDomain(in *domain.Input, _ *Results, cfg *config.GatesConfig) domain.GateResult {
	b := newBuilder(in, f.KeyTriMacro, f.KeyTriFlow, f.KeyTriOnchain)

	m, fl, o := in.Num(f.KeyTriMacro), in.Num(f.KeyTriFlow), in.Num(f.KeyTriOnchain)
	low := math.Min(m, math.Min(fl, o))
	allow := low >= cfg.TriDomain.Bar
	b.score("min", low)
	b.flag("allow", allow)
	if allow {
		b.fire(RuleTriAllow)
	} else {
		b.status(domain.GateClosed)
	}
	return b.done(fmt.Sprintf("macro %.2f, flow %.2f, on-chain %.2f", m, fl, o))
}
