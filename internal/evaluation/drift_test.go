package evaluation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
)

func rows(n, hits int) []Row {
	out := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		v := VerdictMiss
		if i < hits {
			v = VerdictHit
		}
		out = append(out, Row{Date: domain.MustDate("2024-01-01").AddDays(i), Horizon: 7, Verdict: v})
	}
	return out
}

func TestDriftEightConsecutiveMisses(t *testing.T) {
	var entries []domain.HistoryEntry
	for i := 1; i <= 8; i++ {
		entries = append(entries, entry(fmt.Sprintf("2024-01-%02d", i), domain.StateA, 100))
	}
	seed := PriceSeed{}
	for i := 9; i <= 15; i++ {
		seed[domain.Date(fmt.Sprintf("2024-01-%02d", i))] = 100
	}

	cfg := config.Default()
	sig := NewEngine(cfg.Evaluation).DriftAsOf(entries, seed, "2024-01-15", cfg.Drift)

	assert.Contains(t, []domain.DriftLevel{domain.DriftWarn, domain.DriftDanger}, sig.Level)
	assert.Equal(t, 8, sig.SampleSize)
	assert.Equal(t, 0, sig.HitCount)
	assert.Less(t, sig.BetaMultiplier, 1.0)
}

func TestDriftUnknownBelowMinSamples(t *testing.T) {
	cfg := config.Default().Drift
	for n := 0; n < cfg.MinSamples; n++ {
		sig := Drift(rows(n, 0), cfg)
		assert.Equal(t, domain.DriftUnknown, sig.Level)
		assert.Equal(t, 1.0, sig.BetaMultiplier)
		assert.Nil(t, sig.Accuracy)
	}
}

func TestDriftLevels(t *testing.T) {
	cfg := config.Default().Drift
	tests := []struct {
		name  string
		n     int
		hits  int
		level domain.DriftLevel
		mult  float64
	}{
		{"ok at baseline", 10, 6, domain.DriftOK, 1},
		{"warn", 10, 4, domain.DriftWarn, 0.86},
		{"danger", 10, 3, domain.DriftDanger, 0.72},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Drift(rows(tt.n, tt.hits), cfg)
			assert.Equal(t, tt.level, sig.Level)
			assert.Equal(t, tt.mult, sig.BetaMultiplier)
		})
	}
}

func TestDriftUsesMostRecentWindow(t *testing.T) {
	cfg := config.Default().Drift
	// 20 old hits followed by 18 recent misses
	all := rows(38, 20)
	sig := Drift(all, cfg)
	require.NotNil(t, sig.Accuracy)
	assert.Equal(t, cfg.Window, sig.SampleSize)
	assert.Equal(t, 0.0, *sig.Accuracy)
	assert.Equal(t, domain.DriftDanger, sig.Level)
}

func TestDriftIgnoresOtherHorizonsAndPending(t *testing.T) {
	cfg := config.Default().Drift
	rs := rows(5, 0)
	for i := 0; i < 10; i++ {
		rs = append(rs, Row{Horizon: 14, Verdict: VerdictMiss}, Row{Horizon: 7, Verdict: VerdictPending})
	}
	assert.Equal(t, domain.DriftUnknown, Drift(rs, cfg).Level)
}
