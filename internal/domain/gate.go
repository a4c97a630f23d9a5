package domain

// GateStatus is the coarse verdict of a gate
type GateStatus string

const (
	GateOpen   GateStatus = "open"
	GateWarn   GateStatus = "warn"
	GateClosed GateStatus = "closed"
)

// GateDetails explains how a gate reached its status
type GateDetails struct {
	Inputs  map[string]Value   `json:"inputs"`
	Calc    map[string]float64 `json:"calc,omitempty"`
	Rules   []string           `json:"rules"`
	Sources map[string]string  `json:"sources,omitempty"`
	Timings map[string]string  `json:"timings,omitempty"`
}

// GateResult is the output of one rule module. Flags, Scores and Label are the
// typed values later gates and the decision stage read.
type GateResult struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Status  GateStatus         `json:"status"`
	Note    string             `json:"note"`
	Details GateDetails        `json:"details"`
	Flags   map[string]bool    `json:"flags,omitempty"`
	Scores  map[string]float64 `json:"scores,omitempty"`
	Label   string             `json:"label,omitempty"`
}

// Flag returns a named boolean output (false when unset)
func (g GateResult) Flag(name string) bool {
	return g.Flags[name]
}

// Score returns a named numeric output (0 when unset)
func (g GateResult) Score(name string) float64 {
	return g.Scores[name]
}

// Fired reports whether the named rule is among the rules that fired
func (g GateResult) Fired(rule string) bool {
	for _, r := range g.Details.Rules {
		if r == rule {
			return true
		}
	}
	return false
}
