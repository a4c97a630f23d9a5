package gates

import (
	"time"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
)

// Gate ids, in default evaluation order
const (
	IDMacro        = "macro"
	IDLiquidity    = "liquidity"
	IDRiskOn       = "riskon"
	IDLeverage     = "leverage"
	IDSupply       = "supply"
	IDETF          = "etf"
	IDDanger       = "danger"
	IDSVC          = "svc"
	IDBPI          = "bpi"
	IDBCM          = "bcm"
	IDPhase        = "phase"
	IDBE           = "be"
	IDTriDomain    = "tri"
	IDATAF         = "ataf"
	IDDistribution = "distribution"
	IDHPM          = "hpm"
)

// EvalFunc is a pure rule module: it may read the input and gates evaluated before it
type EvalFunc func(in *domain.Input, prior *Results, cfg *config.GatesConfig) domain.GateResult

// Gate binds an id and display name to its evaluator
type Gate struct {
	ID   string
	Name string
	Eval EvalFunc
}

// DefaultGates returns the ordered pre-decision gate list
func DefaultGates() []Gate {
	return []Gate{
		{ID: IDMacro, Name: "Macro", Eval: evalMacro},
		{ID: IDLiquidity, Name: "Liquidity", Eval: evalLiquidity},
		{ID: IDRiskOn, Name: "Risk-ON", Eval: evalRiskOn},
		{ID: IDLeverage, Name: "Leverage", Eval: evalLeverage},
		{ID: IDSupply, Name: "Supply", Eval: evalSupply},
		{ID: IDETF, Name: "ETF", Eval: evalETF},
		{ID: IDDanger, Name: "Danger", Eval: evalDanger},
		{ID: IDSVC, Name: "SVC", Eval: evalSVC},
		{ID: IDBPI, Name: "BPI", Eval: evalBPI},
		{ID: IDBCM, Name: "BCM", Eval: evalBCM},
		{ID: IDPhase, Name: "Phase", Eval: evalPhase},
		{ID: IDBE, Name: "BE", Eval: evalBE},
		{ID: IDTriDomain, Name: "Tri-domain", Eval: evalTriDomain},
		{ID: IDATAF, Name: "ATAF", Eval: evalATAF},
		{ID: IDDistribution, Name: "Distribution", Eval: evalDistribution},
	}
}

// Engine runs an explicit ordered list of gates over a completed input
type Engine struct {
	gates []Gate
	cfg   config.GatesConfig
}

// NewEngine creates an engine with the default gate list
func NewEngine(cfg config.GatesConfig) *Engine {
	return NewEngineWithGates(cfg, DefaultGates())
}

// NewEngineWithGates creates an engine over a custom ordered list
func NewEngineWithGates(cfg config.GatesConfig, gates []Gate) *Engine {
	return &Engine{gates: gates, cfg: cfg}
}

// Gates returns the configured order
func (e *Engine) Gates() []Gate {
	return append([]Gate(nil), e.gates...)
}

// Evaluate runs every gate in order. Each gate sees only the results before it.
func (e *Engine) Evaluate(in *domain.Input) *Results {
	results := NewResults()
	for _, g := range e.gates {
		start := time.Now()
		r := g.Eval(in, results.snapshot(), &e.cfg)
		r.ID = g.ID
		r.Name = g.Name
		if r.Details.Timings == nil {
			r.Details.Timings = make(map[string]string)
		}
		r.Details.Timings["eval"] = time.Since(start).String()
		results.add(r)
	}
	return results
}

// Results holds the outputs of one pass in evaluation order
type Results struct {
	order []string
	byID  map[string]domain.GateResult
}

// NewResults creates an empty result set
func NewResults() *Results {
	return &Results{byID: make(map[string]domain.GateResult)}
}

// ResultsOf builds a result set from already-evaluated gates
func ResultsOf(list ...domain.GateResult) *Results {
	r := NewResults()
	for _, g := range list {
		r.add(g)
	}
	return r
}

func (r *Results) add(g domain.GateResult) {
	if _, ok := r.byID[g.ID]; !ok {
		r.order = append(r.order, g.ID)
	}
	r.byID[g.ID] = g
}

// snapshot is a read-only view of the results so far
func (r *Results) snapshot() *Results {
	cp := &Results{order: append([]string(nil), r.order...), byID: make(map[string]domain.GateResult, len(r.byID))}
	for k, v := range r.byID {
		cp.byID[k] = v
	}
	return cp
}

// Get returns a gate result by id
func (r *Results) Get(id string) (domain.GateResult, bool) {
	g, ok := r.byID[id]
	return g, ok
}

// Flag returns a boolean output of a prior gate (false if the gate has not run)
func (r *Results) Flag(id, name string) bool {
	return r.byID[id].Flag(name)
}

// Score returns a numeric output of a prior gate (0 if the gate has not run)
func (r *Results) Score(id, name string) float64 {
	return r.byID[id].Score(name)
}

// Label returns the label of a prior gate
func (r *Results) Label(id string) string {
	return r.byID[id].Label
}

// List returns results in evaluation order
func (r *Results) List() []domain.GateResult {
	out := make([]domain.GateResult, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
