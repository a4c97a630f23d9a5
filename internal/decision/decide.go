package decision

import (
	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
	"github.com/sawpanic/riskgate/internal/gates"
)

// Context is everything one decision reads
type Context struct {
	Input    *domain.Input
	Gates    *gates.Results
	Previous *domain.HistoryEntry // nearest entry strictly before the date, may be nil
	Drift    domain.DriftSignal
}

// Decider turns gate results into a sized decision
type Decider struct {
	cfg *config.Config
}

// New creates a decider over the full config
func New(cfg *config.Config) *Decider {
	return &Decider{cfg: cfg}
}

// Decide runs state derivation, confidence, sizing and the post-decision HPM gate
func (d *Decider) Decide(c Context) *domain.Decision {
	dc := d.cfg.Decision
	res := c.Gates
	drift := c.Drift
	if drift.Level == "" {
		drift = domain.UnknownDrift(d.cfg.Drift.Baseline, "no drift signal")
	}

	bias := Bias(c.Input, res, dc)
	state := DeriveState(bias, res, dc)
	state = ApplyStateCaps(state, res)
	state = ApplyDriftDegrade(state, drift)

	pen := Penalties{
		Third:          res.Flag(gates.IDLeverage, "betaPenaltyThird"),
		Half:           res.Flag(gates.IDLeverage, "betaPenaltyHalf"),
		ExtremeOutflow: priorExtremeOutflow(c.Previous, dc),
	}
	betaCap := BetaCap(state, res.Score(gates.IDSVC, "capShift"), dc)
	confidence := Confidence(state, res, dc)
	raw := BetaRaw(state, pen, drift.BetaMultiplier, dc)
	exec := Execution(raw, previousBeta(c.Previous), confidence, d.cfg.Execution)
	beta := FinalBeta(raw, exec.Multiplier, betaCap)

	triple := res.Flag(gates.IDDanger, "tripleHit")
	phase := res.Label(gates.IDPhase)
	triAllow := res.Flag(gates.IDTriDomain, "allow")
	extreme := ExtremeAllowed(res, drift, exec, d.cfg)

	hpm := gates.EvaluateHPM(state, phase, triAllow)
	list := append(res.List(), hpm)

	return &domain.Decision{
		Date:           c.Input.Date,
		State:          state,
		Beta:           beta,
		BetaRaw:        raw,
		BetaCap:        betaCap,
		Hedge:          state == domain.StateC || triple || drift.Level == domain.DriftDanger,
		Confidence:     confidence,
		ExtremeAllowed: extreme,
		BiasScore:      bias,
		PhaseLabel:     phase,
		Narrative:      hpm.Label,
		ModelRisk:      drift,
		Execution:      exec,
		ReasonsTop3:    ReasonsTop3(list, bias, state),
		RiskNotes:      RiskNotes(pen, drift, exec, c.Input),
		Gates:          list,
	}
}

// ExtremeAllowed grants maximal sizing only when every condition holds. Drift must be
// ok: an unknown drift level means there is no graded track record yet.
func ExtremeAllowed(res *gates.Results, drift domain.DriftSignal, exec domain.ExecutionSummary, cfg *config.Config) bool {
	return res.Flag(gates.IDPhase, "transitionPassed") &&
		res.Flag(gates.IDTriDomain, "allow") &&
		res.Score(gates.IDSVC, "score") >= cfg.Gates.SVC.ExtremeMinScore &&
		!res.Flag(gates.IDMacro, "closed") &&
		!res.Flag(gates.IDDanger, "tripleHit") &&
		res.Score(gates.IDDanger, "tailRisk") <= cfg.Decision.ExtremeMaxTailRisk &&
		drift.Level == domain.DriftOK &&
		exec.Level == domain.ExecutionOK
}

func previousBeta(prev *domain.HistoryEntry) *float64 {
	if prev == nil || prev.Output == nil {
		return nil
	}
	b := prev.Output.Beta
	return &b
}

func priorExtremeOutflow(prev *domain.HistoryEntry, cfg config.DecisionConfig) bool {
	if prev == nil || prev.Input == nil {
		return false
	}
	v, ok := prev.Input.Get(f.KeyETF1d).Float()
	return ok && v <= cfg.ExtremeOutflowETF1dMax
}
