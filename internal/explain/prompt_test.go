package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/riskgate/internal/domain"
)

func sampleDecision() *domain.Decision {
	return &domain.Decision{
		Date:        "2024-03-01",
		State:       domain.StateC,
		Beta:        0.2,
		BetaCap:     0.35,
		Confidence:  0.41,
		Hedge:       true,
		PhaseLabel:  "Late-Div",
		Narrative:   "defensive",
		ReasonsTop3: []string{"macro forced C", "danger triple hit"},
		RiskNotes:   []string{"drift warn"},
		Gates: []domain.GateResult{
			{ID: "macro", Name: "Macro", Status: domain.GateClosed, Note: "dxy trigger",
				Details: domain.GateDetails{Calc: map[string]float64{"b": 2, "a": 1}}},
			{ID: "liquidity", Name: "Liquidity", Status: domain.GateWarn, Note: "score 44"},
		},
	}
}

func TestBuildPromptCarriesDecisionFields(t *testing.T) {
	p, err := BuildPrompt(sampleDecision())
	require.NoError(t, err)

	assert.Equal(t, domain.StateC, p.State)
	assert.Equal(t, 0.35, p.BetaCap)
	assert.True(t, p.Hedge)
	assert.Equal(t, "Late-Div", p.PhaseLabel)
	assert.Equal(t, []string{"macro forced C", "danger triple hit"}, p.ReasonsTop3)
	require.Len(t, p.Gates, 2)
	assert.Equal(t, "dxy trigger", p.Gates[0].Note)
	assert.Equal(t, 1.0, p.Gates[0].Details.Calc["a"])
	assert.Len(t, p.Hash, 16)
}

func TestBuildPromptHashIsStable(t *testing.T) {
	a, err := BuildPrompt(sampleDecision())
	require.NoError(t, err)
	b, err := BuildPrompt(sampleDecision())
	require.NoError(t, err)
	assert.Equal(t, a.Hash, b.Hash)

	d := sampleDecision()
	d.Beta = 0.21
	c, err := BuildPrompt(d)
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash, c.Hash)
}

func TestBuildPromptRejectsNil(t *testing.T) {
	_, err := BuildPrompt(nil)
	assert.Error(t, err)
}

func TestPromptText(t *testing.T) {
	p, err := BuildPrompt(sampleDecision())
	require.NoError(t, err)
	text := p.Text()
	assert.Contains(t, text, "State: C")
	assert.Contains(t, text, "Hedge: true")
	assert.Contains(t, text, "- drift warn")
	assert.Contains(t, text, "- Macro [closed] dxy trigger")
}
