package gates

import (
	"fmt"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
)

// evalATAF counts tightening against easing signals across dollar, rates and the Fed
// balance sheet plumbing.
func evalATAF(in *domain.Input, _ *Results, cfg *config.GatesConfig) domain.GateResult {
	b := newBuilder(in, f.KeyDXY5d, f.KeyUS2Y7dBp, f.KeyUS10Y7dBp, f.KeyRealYield7dBp,
		f.KeyFCIUpWeeks, f.KeyRRPChange7d, f.KeyTGAChange7d, f.KeyFedBalance4w)

	// rising RRP and TGA drain reserves, a shrinking balance sheet tightens.
	// fciUpWeeks is a run length and can only add tightening; zero is neutral.
	rising := []float64{
		in.Num(f.KeyDXY5d), in.Num(f.KeyUS2Y7dBp), in.Num(f.KeyUS10Y7dBp),
		in.Num(f.KeyRealYield7dBp), in.Num(f.KeyRRPChange7d), in.Num(f.KeyTGAChange7d),
		-in.Num(f.KeyFedBalance4w), in.Num(f.KeyFCIUpWeeks),
	}
	tight, loose := 0, 0
	for _, v := range rising {
		switch {
		case v > 0:
			tight++
		case v < 0:
			loose++
		}
	}
	b.score("tightening", float64(tight))
	b.score("easing", float64(loose))

	bias := BiasNeutral
	switch {
	case tight-loose > cfg.ATAF.BiasMargin:
		bias = BiasTight
		b.fire(RuleATAFTight)
		b.status(domain.GateWarn)
	case loose-tight > cfg.ATAF.BiasMargin:
		bias = BiasLoose
		b.fire(RuleATAFLoose)
	}
	b.label(bias)
	return b.done(fmt.Sprintf("%s (%d tightening / %d easing)", bias, tight, loose))
}
