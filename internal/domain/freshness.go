package domain

// FreshnessLevel classifies how decayed an observed value is
type FreshnessLevel string

const (
	FreshnessFresh   FreshnessLevel = "fresh"
	FreshnessAging   FreshnessLevel = "aging"
	FreshnessStale   FreshnessLevel = "stale"
	FreshnessUnknown FreshnessLevel = "unknown"
)

// Freshness is the derived staleness classification of one field
type Freshness struct {
	Level         FreshnessLevel `json:"level"`
	HalfLifeDays  float64        `json:"half_life_days"`
	AgeDays       *float64       `json:"age_days"`
	ExpiresInDays *float64       `json:"expires_in_days"`
}

// Stale reports whether the value must not be used
func (f Freshness) Stale() bool { return f.Level == FreshnessStale }
