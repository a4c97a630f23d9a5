// Package explain builds the payload a narrative generator turns into prose.
package explain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sawpanic/riskgate/internal/domain"
)

// GateNote is the per-gate slice of a prompt
type GateNote struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Status  domain.GateStatus  `json:"status"`
	Note    string             `json:"note"`
	Details domain.GateDetails `json:"details"`
}

// Prompt carries every decision field the narrative generator reads
type Prompt struct {
	Date        domain.Date  `json:"date"`
	State       domain.State `json:"state"`
	Beta        float64      `json:"beta"`
	BetaCap     float64      `json:"beta_cap"`
	Confidence  float64      `json:"confidence"`
	Hedge       bool         `json:"hedge"`
	PhaseLabel  string       `json:"phase_label"`
	Narrative   string       `json:"narrative"`
	ReasonsTop3 []string     `json:"reasons_top3"`
	RiskNotes   []string     `json:"risk_notes"`
	Gates       []GateNote   `json:"gates"`
	Hash        string       `json:"hash"`
}

// BuildPrompt extracts the prompt payload from a decision
func BuildPrompt(d *domain.Decision) (*Prompt, error) {
	if d == nil {
		return nil, errors.New("decision is required")
	}
	p := &Prompt{
		Date:        d.Date,
		State:       d.State,
		Beta:        d.Beta,
		BetaCap:     d.BetaCap,
		Confidence:  d.Confidence,
		Hedge:       d.Hedge,
		PhaseLabel:  d.PhaseLabel,
		Narrative:   d.Narrative,
		ReasonsTop3: append([]string(nil), d.ReasonsTop3...),
		RiskNotes:   append([]string(nil), d.RiskNotes...),
		Gates:       make([]GateNote, 0, len(d.Gates)),
	}
	for _, g := range d.Gates {
		p.Gates = append(p.Gates, GateNote{ID: g.ID, Name: g.Name, Status: g.Status, Note: g.Note, Details: g.Details})
	}
	p.Hash = hashPrompt(p)
	return p, nil
}

// Text renders the prompt as the plain-text brief handed to the generator
func (p *Prompt) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\n", p.Date)
	fmt.Fprintf(&b, "State: %s  Beta: %.2f (cap %.2f)  Confidence: %.2f  Hedge: %t\n", p.State, p.Beta, p.BetaCap, p.Confidence, p.Hedge)
	fmt.Fprintf(&b, "Phase: %s  Narrative: %s\n", p.PhaseLabel, p.Narrative)

	b.WriteString("Reasons:\n")
	for _, r := range p.ReasonsTop3 {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	if len(p.RiskNotes) > 0 {
		b.WriteString("Risk notes:\n")
		for _, r := range p.RiskNotes {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	b.WriteString("Gates:\n")
	for _, g := range p.Gates {
		fmt.Fprintf(&b, "- %s [%s] %s\n", g.Name, g.Status, g.Note)
	}
	return b.String()
}

// hashPrompt is stable across map iteration order so identical decisions hash equal
func hashPrompt(p *Prompt) string {
	h := sha256.New()
	fmt.Fprintf(h, "v1|%s|%s|%.6f|%.6f|%.6f|%t|%s|%s", p.Date, p.State, p.Beta, p.BetaCap, p.Confidence, p.Hedge, p.PhaseLabel, p.Narrative)
	for _, r := range p.ReasonsTop3 {
		fmt.Fprintf(h, "|r:%s", r)
	}
	for _, r := range p.RiskNotes {
		fmt.Fprintf(h, "|n:%s", r)
	}
	for _, g := range p.Gates {
		fmt.Fprintf(h, "|g:%s:%s:%s", g.ID, g.Status, g.Note)
		keys := make([]string, 0, len(g.Details.Calc))
		for k := range g.Details.Calc {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(h, ":%s=%.6f", k, g.Details.Calc[k])
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
