package domain

// State is the coarse risk posture
type State string

const (
	StateA State = "A"
	StateB State = "B"
	StateC State = "C"
)

// Valid reports whether s is one of A, B, C
func (s State) Valid() bool {
	return s == StateA || s == StateB || s == StateC
}

// DriftLevel grades recent prediction accuracy against the baseline
type DriftLevel string

const (
	DriftUnknown DriftLevel = "unknown"
	DriftOK      DriftLevel = "ok"
	DriftWarn    DriftLevel = "warn"
	DriftDanger  DriftLevel = "danger"
)

// DriftSignal is the rolling-accuracy summary fed back into sizing
type DriftSignal struct {
	Level          DriftLevel `json:"level"`
	Horizon        int        `json:"horizon"`
	Accuracy       *float64   `json:"accuracy"`
	Baseline       float64    `json:"baseline"`
	SampleSize     int        `json:"sample_size"`
	HitCount       int        `json:"hit_count"`
	BetaMultiplier float64    `json:"beta_multiplier"`
	Note           string     `json:"note"`
}

// UnknownDrift is the neutral signal used when there is no evidence
func UnknownDrift(baseline float64, note string) DriftSignal {
	return DriftSignal{Level: DriftUnknown, Baseline: baseline, BetaMultiplier: 1, Note: note}
}

// ExecutionLevel grades expected trading cost against expected edge
type ExecutionLevel string

const (
	ExecutionOK     ExecutionLevel = "ok"
	ExecutionMedium ExecutionLevel = "medium"
	ExecutionHigh   ExecutionLevel = "high"
)

// ExecutionSummary is the cost-model output attached to a decision
type ExecutionSummary struct {
	PreviousBeta    *float64       `json:"previous_beta"`
	Turnover        float64        `json:"turnover"`
	CostBps         float64        `json:"cost_bps"`
	ExpectedCostPct float64        `json:"expected_cost_pct"`
	EdgePct         float64        `json:"edge_pct"`
	CostPressure    float64        `json:"cost_pressure"`
	Level           ExecutionLevel `json:"level"`
	Multiplier      float64        `json:"multiplier"`
}

// Decision is the frozen output record for one date
type Decision struct {
	Date           Date             `json:"date"`
	State          State            `json:"state"`
	Beta           float64          `json:"beta"`
	BetaRaw        float64          `json:"beta_raw"`
	BetaCap        float64          `json:"beta_cap"`
	Hedge          bool             `json:"hedge"`
	Confidence     float64          `json:"confidence"`
	ExtremeAllowed bool             `json:"extreme_allowed"`
	BiasScore      float64          `json:"bias_score"`
	PhaseLabel     string           `json:"phase_label"`
	Narrative      string           `json:"narrative"`
	ModelRisk      DriftSignal      `json:"model_risk"`
	Execution      ExecutionSummary `json:"execution"`
	ReasonsTop3    []string         `json:"reasons_top3"`
	RiskNotes      []string         `json:"risk_notes"`
	Gates          []GateResult     `json:"gates"`
}

// Gate returns the gate result with the given id
func (d *Decision) Gate(id string) (GateResult, bool) {
	for _, g := range d.Gates {
		if g.ID == id {
			return g, true
		}
	}
	return GateResult{}, false
}
