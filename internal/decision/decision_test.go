package decision

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	f "github.com/sawpanic/riskgate/internal/freshness"
	"github.com/sawpanic/riskgate/internal/gates"
)

func input(fields map[string]float64) *domain.Input {
	in := domain.NewInput("2024-03-01")
	for k, v := range fields {
		in.Set(k, domain.Number(v), domain.FieldProvenance{Source: "test"})
	}
	return in
}

func decide(t *testing.T, in *domain.Input, prev *domain.HistoryEntry, drift domain.DriftSignal) *domain.Decision {
	t.Helper()
	cfg := config.Default()
	res := gates.NewEngine(cfg.Gates).Evaluate(in)
	return New(&cfg).Decide(Context{Input: in, Gates: res, Previous: prev, Drift: drift})
}

func gate(id string, flags map[string]bool, scores map[string]float64) domain.GateResult {
	return domain.GateResult{ID: id, Flags: flags, Scores: scores}
}

func TestTripleHitForcesCAndHedge(t *testing.T) {
	d := decide(t, input(map[string]float64{
		f.KeyDXY5d: 1.2, f.KeyETF10d: -700, f.KeyETF5d: -500, f.KeyStablecoin30d: -8,
	}), nil, domain.DriftSignal{})

	assert.Equal(t, domain.StateC, d.State)
	assert.True(t, d.Hedge)
	assert.False(t, d.ExtremeAllowed)
	require.NotEmpty(t, d.ReasonsTop3)
	assert.Contains(t, d.ReasonsTop3[0], "triple hit")

	g, ok := d.Gate(gates.IDHPM)
	require.True(t, ok)
	assert.Equal(t, d.Narrative, g.Label)
	assert.Len(t, d.Gates, 16)
}

func TestLiquidationHalvesBeta(t *testing.T) {
	base := decide(t, input(nil), nil, domain.DriftSignal{})
	hit := decide(t, input(map[string]float64{f.KeyLiquidationUSD: 1_200_000_000}), nil, domain.DriftSignal{})

	require.Equal(t, base.State, hit.State)
	assert.LessOrEqual(t, hit.Beta, 0.5*base.Beta+1e-12)
	assert.InDelta(t, 0.5*base.BetaRaw, hit.BetaRaw, 1e-12)
	assert.Contains(t, hit.RiskNotes, "beta halved: liquidations above threshold")
}

func TestBetaRawPenaltiesCompose(t *testing.T) {
	cfg := config.Default().Decision
	assert.InDelta(t, 0.75, BetaRaw(domain.StateA, Penalties{}, 1, cfg), 1e-12)
	assert.InDelta(t, 0.45*0.67*0.5*0.8, BetaRaw(domain.StateB, Penalties{Third: true, Half: true, ExtremeOutflow: true}, 1, cfg), 1e-12)
	assert.InDelta(t, 0.2*0.72, BetaRaw(domain.StateC, Penalties{}, 0.72, cfg), 1e-12)
}

func TestBetaCapShiftAndClamp(t *testing.T) {
	cfg := config.Default().Decision
	assert.InDelta(t, 1.0, BetaCap(domain.StateA, 1, cfg), 1e-12)
	assert.InDelta(t, 0.5, BetaCap(domain.StateB, -1, cfg), 1e-12)
	assert.InDelta(t, 0.25, BetaCap(domain.StateC, -1, cfg), 1e-12)

	cfg.BetaCap = map[string]float64{"C": 0.1}
	assert.Equal(t, 0.2, BetaCap(domain.StateC, -1, cfg))
}

func TestDeriveState(t *testing.T) {
	cfg := config.Default().Decision
	none := gates.NewResults()
	assert.Equal(t, domain.StateA, DeriveState(65, none, cfg))
	assert.Equal(t, domain.StateB, DeriveState(64.9, none, cfg))
	assert.Equal(t, domain.StateC, DeriveState(35, none, cfg))

	forced := gates.ResultsOf(gate(gates.IDMacro, map[string]bool{"forceC": true}, nil))
	assert.Equal(t, domain.StateC, DeriveState(90, forced, cfg))

	triple := gates.ResultsOf(gate(gates.IDDanger, map[string]bool{"tripleHit": true}, nil))
	assert.Equal(t, domain.StateC, DeriveState(90, triple, cfg))
}

func TestStateCapsAndDriftDegrade(t *testing.T) {
	closed := gates.ResultsOf(gate(gates.IDMacro, map[string]bool{"closed": true}, nil))
	assert.Equal(t, domain.StateB, ApplyStateCaps(domain.StateA, closed))
	assert.Equal(t, domain.StateC, ApplyStateCaps(domain.StateC, closed))
	assert.Equal(t, domain.StateA, ApplyStateCaps(domain.StateA, gates.NewResults()))

	danger := domain.DriftSignal{Level: domain.DriftDanger}
	warn := domain.DriftSignal{Level: domain.DriftWarn}
	assert.Equal(t, domain.StateB, ApplyDriftDegrade(domain.StateA, danger))
	assert.Equal(t, domain.StateC, ApplyDriftDegrade(domain.StateB, danger))
	assert.Equal(t, domain.StateC, ApplyDriftDegrade(domain.StateC, danger))
	assert.Equal(t, domain.StateB, ApplyDriftDegrade(domain.StateA, warn))
	assert.Equal(t, domain.StateB, ApplyDriftDegrade(domain.StateB, warn))
	assert.Equal(t, domain.StateA, ApplyDriftDegrade(domain.StateA, domain.UnknownDrift(0.55, "")))
}

func TestConfidence(t *testing.T) {
	cfg := config.Default().Decision
	res := gates.ResultsOf(
		gate(gates.IDRiskOn, map[string]bool{"on": true}, nil),
		gate(gates.IDETF, map[string]bool{"breakoutValidated": true}, nil),
		gate(gates.IDSVC, nil, map[string]float64{"confidenceMultiplier": 1.08}),
	)
	assert.InDelta(t, (0.52+0.06+0.05)*1.08, Confidence(domain.StateB, res, cfg), 1e-12)

	dist := gates.ResultsOf(gate(gates.IDDistribution, map[string]bool{"distribution": true}, nil))
	assert.InDelta(t, 0.56, Confidence(domain.StateC, dist, cfg), 1e-12)
	assert.InDelta(t, 0.52, Confidence(domain.StateA, dist, cfg), 1e-12)

	rev := gates.ResultsOf(gate(gates.IDPhase, map[string]bool{"reversal": true}, nil))
	assert.InDelta(t, 0.55, Confidence(domain.StateB, rev, cfg), 1e-12)

	bad := gates.ResultsOf(
		gate(gates.IDMacro, map[string]bool{"closed": true}, nil),
		gate(gates.IDDanger, nil, map[string]float64{"riskWeight": 3}),
		gate(gates.IDSVC, nil, map[string]float64{"confidenceMultiplier": 0.9}),
	)
	assert.InDelta(t, (0.52-0.08-0.09)*0.9, Confidence(domain.StateC, bad, cfg), 1e-12)
}

func TestExecution(t *testing.T) {
	cfg := config.Default().Execution

	first := Execution(0.45, nil, 0.6, cfg)
	assert.Equal(t, 0.0, first.Turnover)
	assert.Equal(t, domain.ExecutionOK, first.Level)
	assert.Equal(t, 1.0, first.Multiplier)
	assert.Nil(t, first.PreviousBeta)

	prev := 0.15
	ok := Execution(0.45, &prev, 0.6, cfg)
	assert.InDelta(t, 0.3, ok.Turnover, 1e-12)
	assert.InDelta(t, 0.036, ok.ExpectedCostPct, 1e-12)
	assert.InDelta(t, 0.16, ok.EdgePct, 1e-12)
	assert.Equal(t, domain.ExecutionOK, ok.Level)

	prev = 0.95
	high := Execution(0.45, &prev, 0.52, cfg)
	assert.Equal(t, domain.ExecutionHigh, high.Level)
	assert.Equal(t, 0.82, high.Multiplier)

	medium := Execution(0.45, &prev, 0.5625, cfg)
	assert.Equal(t, domain.ExecutionMedium, medium.Level)
	assert.Equal(t, 0.9, medium.Multiplier)

	floor := Execution(0.45, &prev, 0.3, cfg)
	assert.Equal(t, 0.02, floor.EdgePct)
}

func TestPriorDayExtremeOutflow(t *testing.T) {
	prev := &domain.HistoryEntry{
		Date:   "2024-02-29",
		Input:  input(map[string]float64{f.KeyETF1d: -600}),
		Output: &domain.Decision{Beta: 0.2},
	}
	d := decide(t, input(nil), prev, domain.DriftSignal{})
	assert.Contains(t, d.RiskNotes, "beta cut: prior-day extreme ETF outflow")
	require.NotNil(t, d.Execution.PreviousBeta)
	assert.Equal(t, 0.2, *d.Execution.PreviousBeta)
	assert.InDelta(t, 0.2*0.8, d.BetaRaw, 1e-12)
}

func TestDriftDangerHedges(t *testing.T) {
	drift := domain.DriftSignal{Level: domain.DriftDanger, BetaMultiplier: 0.72, Note: "accuracy 0.30"}
	d := decide(t, input(nil), nil, drift)
	assert.True(t, d.Hedge)
	assert.Equal(t, domain.DriftDanger, d.ModelRisk.Level)
	assert.InDelta(t, 0.2*0.72, d.BetaRaw, 1e-12)
}

func TestExtremeAllowedNeedsEveryCondition(t *testing.T) {
	cfg := config.Default()
	type conds struct {
		transition, triAllow, macroClosed, triple bool
		svc, tailRisk                             float64
		drift                                     domain.DriftLevel
		exec                                      domain.ExecutionLevel
	}
	all := conds{transition: true, triAllow: true, svc: 8, tailRisk: 0.2, drift: domain.DriftOK, exec: domain.ExecutionOK}
	eval := func(c conds) bool {
		res := gates.ResultsOf(
			gate(gates.IDMacro, map[string]bool{"closed": c.macroClosed}, nil),
			gate(gates.IDDanger, map[string]bool{"tripleHit": c.triple}, map[string]float64{"tailRisk": c.tailRisk}),
			gate(gates.IDSVC, nil, map[string]float64{"score": c.svc}),
			gate(gates.IDPhase, map[string]bool{"transitionPassed": c.transition}, nil),
			gate(gates.IDTriDomain, map[string]bool{"allow": c.triAllow}, nil),
		)
		return ExtremeAllowed(res, domain.DriftSignal{Level: c.drift, BetaMultiplier: 1}, domain.ExecutionSummary{Level: c.exec}, &cfg)
	}
	require.True(t, eval(all))

	tests := []struct {
		name string
		flip func(*conds)
	}{
		{"no phase transition", func(c *conds) { c.transition = false }},
		{"tri domain blocked", func(c *conds) { c.triAllow = false }},
		{"svc below 7", func(c *conds) { c.svc = 6.9 }},
		{"macro closed", func(c *conds) { c.macroClosed = true }},
		{"triple hit", func(c *conds) { c.triple = true }},
		{"tail risk above 0.6", func(c *conds) { c.tailRisk = 0.61 }},
		{"drift unknown", func(c *conds) { c.drift = domain.DriftUnknown }},
		{"drift warn", func(c *conds) { c.drift = domain.DriftWarn }},
		{"drift danger", func(c *conds) { c.drift = domain.DriftDanger }},
		{"execution medium", func(c *conds) { c.exec = domain.ExecutionMedium }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := all
			tt.flip(&c)
			assert.False(t, eval(c))
		})
	}
}

func TestExtremeAllowedEndToEnd(t *testing.T) {
	strong := func() *domain.Input {
		return input(map[string]float64{
			f.KeyTrendScore: 0.8, f.KeyDivergenceScore: 0.2,
			f.KeyTriMacro: 0.8, f.KeyTriFlow: 0.8, f.KeyTriOnchain: 0.8,
			f.KeyRSD: 8, f.KeyLSTC: 8,
		})
	}
	ok := decide(t, strong(), nil, domain.DriftSignal{Level: domain.DriftOK, BetaMultiplier: 1})
	assert.True(t, ok.ExtremeAllowed)

	unknown := decide(t, strong(), nil, domain.UnknownDrift(0.55, "no graded rows"))
	assert.False(t, unknown.ExtremeAllowed)
}

func TestBiasUsesConfiguredWeights(t *testing.T) {
	cfg := config.Default()
	in := input(map[string]float64{f.KeyETF10d: 100})
	res := gates.NewEngine(cfg.Gates).Evaluate(in)
	base := Bias(in, res, cfg.Decision)

	cfg.Decision.BiasETF10dStep = 0
	assert.InDelta(t, base-8, Bias(in, res, cfg.Decision), 1e-9)

	cfg.Decision.BiasNeutral = 60
	assert.Greater(t, Bias(in, res, cfg.Decision), base-8)
}

func TestExecutionConfidencePivot(t *testing.T) {
	cfg := config.Default().Execution
	prev := 0.15
	cfg.ConfidencePivot = 0.4
	assert.InDelta(t, 0.32, Execution(0.45, &prev, 0.6, cfg).EdgePct, 1e-12)
}

var fuzzKeys = map[string][2]float64{
	f.KeyDXY5d:              {-3, 3},
	f.KeyDXYUpDays:          {0, 6},
	f.KeyUS2Y7dBp:           {-30, 30},
	f.KeyFCIUpWeeks:         {0, 5},
	f.KeyETF1d:              {-1200, 1200},
	f.KeyETF5d:              {-2000, 2000},
	f.KeyETF10d:             {-3000, 3000},
	f.KeyStablecoin30d:      {-12, 12},
	f.KeyExchStableDelta:    {-10, 10},
	f.KeyUS2YSinceBaseline:  {-20, 20},
	f.KeyDXYSinceBaseline:   {-3, 3},
	f.KeyLiquidationUSD:     {0, 3e9},
	f.KeyCrowdingIndex:      {0, 100},
	f.KeyRSD:                {0, 10},
	f.KeyLSTC:               {0, 10},
	f.KeyBuyWallScore:       {0, 100},
	f.KeySupplyScore:        {0, 100},
	f.KeyLeverageHealth:     {0, 100},
	f.KeyTrendScore:         {0, 1},
	f.KeyDivergenceScore:    {0, 1},
	f.KeyExchBalanceTrend:   {-0.5, 0.5},
	f.KeyTriMacro:           {0, 1},
	f.KeyTriFlow:            {0, 1},
	f.KeyTriOnchain:         {0, 1},
	f.KeyCognitivePotential: {0, 1},
	f.KeyLiquidityPotential: {0, 1},
	f.KeyOnchainReflexivity: {0, 1},
	f.KeySentimentIndex:     {0, 100},
}

func TestDecisionBoundsOverRandomInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	drifts := []domain.DriftSignal{
		domain.UnknownDrift(0.55, ""),
		{Level: domain.DriftOK, BetaMultiplier: 1},
		{Level: domain.DriftWarn, BetaMultiplier: 0.86},
		{Level: domain.DriftDanger, BetaMultiplier: 0.72},
	}

	for i := 0; i < 2000; i++ {
		fields := make(map[string]float64, len(fuzzKeys))
		for k, r := range fuzzKeys {
			fields[k] = r[0] + rng.Float64()*(r[1]-r[0])
		}
		in := input(fields)
		in.Set(f.KeyPolicyWindow, domain.Bool(rng.Intn(2) == 0), domain.FieldProvenance{})
		in.Set(f.KeyVolumeConfirmed, domain.Bool(rng.Intn(2) == 0), domain.FieldProvenance{})

		var prev *domain.HistoryEntry
		if rng.Intn(2) == 0 {
			prev = &domain.HistoryEntry{Date: "2024-02-29", Input: input(map[string]float64{f.KeyETF1d: -1000 + rng.Float64()*2000}), Output: &domain.Decision{Beta: rng.Float64()}}
		}
		d := decide(t, in, prev, drifts[rng.Intn(len(drifts))])

		require.True(t, d.State.Valid())
		require.GreaterOrEqual(t, d.BetaCap, 0.2)
		require.LessOrEqual(t, d.BetaCap, 1.0)
		require.GreaterOrEqual(t, d.Beta, 0.0)
		require.LessOrEqual(t, d.Beta, d.BetaCap)
		require.GreaterOrEqual(t, d.Confidence, 0.2)
		require.LessOrEqual(t, d.Confidence, 0.95)
		require.GreaterOrEqual(t, d.BiasScore, 0.0)
		require.LessOrEqual(t, d.BiasScore, 100.0)
		require.LessOrEqual(t, len(d.ReasonsTop3), 3)

		macro, _ := d.Gate(gates.IDMacro)
		danger, _ := d.Gate(gates.IDDanger)
		if macro.Flag("forceC") || danger.Flag("tripleHit") {
			require.Equal(t, domain.StateC, d.State)
			require.True(t, d.Hedge)
		}
		if d.ExtremeAllowed {
			require.False(t, macro.Flag("closed"))
			require.Equal(t, domain.ExecutionOK, d.Execution.Level)
		}
	}
}
