package gates

import (
	"fmt"
	"math"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
)

// evalBE requires breakout potential above a sentiment-scaled bar: euphoric sentiment
// raises the bar, fear lowers it.
func evalBE(in *domain.Input, _ *Results, cfg *config.GatesConfig) domain.GateResult {
	c := cfg.BE
	b := newBuilder(in, f.KeyCognitivePotential, f.KeyLiquidityPotential, f.KeyOnchainReflexivity, f.KeySentimentIndex)

	potential := in.Num(f.KeyCognitivePotential) * in.Num(f.KeyLiquidityPotential) * in.Num(f.KeyOnchainReflexivity)
	sentiment := in.Num(f.KeySentimentIndex)
	threshold := math.Max(0, c.BaseThreshold*(1+c.SentimentSlope*(sentiment-50)/50))
	pass := potential > threshold

	b.score("potential", potential)
	b.score("threshold", threshold)
	b.flag("pass", pass)
	if pass {
		b.fire(RuleBEPass)
	} else {
		b.status(domain.GateWarn)
	}
	return b.done(fmt.Sprintf("potential %.3f vs threshold %.3f", potential, threshold))
}
