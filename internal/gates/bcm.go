package gates

import (
	"fmt"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
)

// evalBCM weighs four bull conditions against four bear conditions and reports the
// pairs of inputs that tell opposite stories.
func evalBCM(in *domain.Input, prior *Results, cfg *config.GatesConfig) domain.GateResult {
	b := newBuilder(in, f.KeyETF5d, f.KeyStablecoin30d, f.KeyExchStableDelta, f.KeyCrowdingIndex, f.KeyFundingRate)

	etf5d := in.Num(f.KeyETF5d)
	stable := in.Num(f.KeyStablecoin30d)
	exch := in.Num(f.KeyExchStableDelta)
	liq := prior.Score(IDLiquidity, "score")
	macroClosed := prior.Flag(IDMacro, "closed")
	crowded := in.Num(f.KeyCrowdingIndex) >= cfg.Leverage.CrowdingThird

	bull := fraction(etf5d > 0, stable > 0, liq >= cfg.Liquidity.WarnBelow, !macroClosed)
	bear := fraction(etf5d < 0, stable < 0, macroClosed, crowded)
	b.score("bull", bull)
	b.score("bear", bear)

	var conflicts []string
	if bull > cfg.BCM.ConflictScore && bear > cfg.BCM.ConflictScore {
		conflicts = append(conflicts, "bull and bear both dominant")
	}
	if etf5d > 0 && exch < 0 {
		conflicts = append(conflicts, "ETF inflow vs exchange stablecoin outflow")
	}
	if stable > 0 && macroClosed {
		conflicts = append(conflicts, "stablecoin growth under closed macro")
	}
	if funding, ok := in.Get(f.KeyFundingRate).Float(); ok && funding > cfg.BCM.FundingOverheated && etf5d < 0 {
		conflicts = append(conflicts, "overheated funding into ETF outflow")
	}
	b.score("conflicts", float64(len(conflicts)))
	b.flag("conflict", len(conflicts) > 0)
	for range conflicts {
		b.fire(RuleBCMConflict)
	}

	switch {
	case bull > bear:
		b.label("bull")
	case bear > bull:
		b.label("bear")
		b.status(domain.GateClosed)
	default:
		b.label("neutral")
		b.status(domain.GateWarn)
	}
	if len(conflicts) > 0 && b.r.Status == domain.GateOpen {
		b.status(domain.GateWarn)
	}

	note := fmt.Sprintf("bull %.2f / bear %.2f", bull, bear)
	for _, c := range conflicts {
		note += "; " + c
	}
	return b.done(note)
}

func fraction(conds ...bool) float64 {
	if len(conds) == 0 {
		return 0
	}
	n := 0
	for _, c := range conds {
		if c {
			n++
		}
	}
	return float64(n) / float64(len(conds))
}
