package gates

import (
	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
)

// evalRiskOn is only live inside a declared policy window: yields and dollar must both
// be below their window baseline.
func evalRiskOn(in *domain.Input, _ *Results, _ *config.GatesConfig) domain.GateResult {
	b := newBuilder(in, f.KeyPolicyWindow, f.KeyUS2YSinceBaseline, f.KeyDXYSinceBaseline)

	inWindow := in.Flag(f.KeyPolicyWindow)
	b.flag("inWindow", inWindow)
	b.flag("on", false)
	if !inWindow {
		b.status(domain.GateWarn)
		return b.done("outside policy window")
	}

	us2y, okY := in.Get(f.KeyUS2YSinceBaseline).Float()
	dxy, okD := in.Get(f.KeyDXYSinceBaseline).Float()
	if !okY || !okD {
		b.status(domain.GateWarn)
		return b.done("policy window baseline unavailable")
	}
	b.calc("us2ySinceBaseline", us2y)
	b.calc("dxySinceBaseline", dxy)

	if us2y < 0 && dxy < 0 {
		b.flag("on", true)
		b.fire(RuleRiskOn)
		return b.done("risk-on: yields and dollar below window baseline")
	}
	b.status(domain.GateClosed)
	return b.done("policy window without easing confirmation")
}
