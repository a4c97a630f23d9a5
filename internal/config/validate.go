package config

import (
	"fmt"
	"strings"
)

// Validate checks the constraints every component relies on
func (c Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be trace|debug|info|warn|error, got %q", c.LogLevel)
	}

	if c.Freshness.DefaultHalfLifeDays <= 0 {
		return fmt.Errorf("freshness.default_half_life_days must be > 0, got %f", c.Freshness.DefaultHalfLifeDays)
	}
	for key, h := range c.Freshness.HalfLifeDays {
		if h <= 0 {
			return fmt.Errorf("freshness.half_life_days[%s] must be > 0, got %f", key, h)
		}
	}

	for _, r := range []struct {
		name string
		rng  Range
	}{
		{"etf_10d_range", c.Gates.Liquidity.ETF10dRange},
		{"stable_30d_range", c.Gates.Liquidity.Stable30dRange},
		{"exch_stable_range", c.Gates.Liquidity.ExchStableRange},
	} {
		if r.rng.Max <= r.rng.Min {
			return fmt.Errorf("gates.liquidity.%s max must exceed min, got [%f,%f]", r.name, r.rng.Min, r.rng.Max)
		}
	}

	if c.Gates.BPI.ClosedBelow > c.Gates.BPI.WarnBelow {
		return fmt.Errorf("gates.bpi.closed_below must be <= warn_below, got %f/%f", c.Gates.BPI.ClosedBelow, c.Gates.BPI.WarnBelow)
	}

	for _, s := range []string{"A", "B", "C"} {
		if _, ok := c.Decision.BetaBase[s]; !ok {
			return fmt.Errorf("decision.beta_base missing state %s", s)
		}
		if _, ok := c.Decision.BetaCap[s]; !ok {
			return fmt.Errorf("decision.beta_cap missing state %s", s)
		}
	}
	if c.Decision.CapMin < 0 || c.Decision.CapMax > 1 || c.Decision.CapMin > c.Decision.CapMax {
		return fmt.Errorf("decision cap bounds must satisfy 0 <= cap_min <= cap_max <= 1, got [%f,%f]", c.Decision.CapMin, c.Decision.CapMax)
	}
	if c.Decision.ConfidenceMin > c.Decision.ConfidenceMax {
		return fmt.Errorf("decision.confidence_min must be <= confidence_max")
	}

	if c.Execution.CostBps < 0 {
		return fmt.Errorf("execution.cost_bps must be >= 0, got %f", c.Execution.CostBps)
	}

	if len(c.Evaluation.Horizons) == 0 {
		return fmt.Errorf("evaluation.horizons must not be empty")
	}
	for _, h := range c.Evaluation.Horizons {
		if h <= 0 {
			return fmt.Errorf("evaluation horizon must be > 0, got %d", h)
		}
		if _, ok := c.Evaluation.ThresholdPct[h]; !ok {
			return fmt.Errorf("evaluation.threshold_pct missing horizon %d", h)
		}
	}
	if c.Evaluation.ToleranceDays < 0 {
		return fmt.Errorf("evaluation.tolerance_days must be >= 0, got %d", c.Evaluation.ToleranceDays)
	}

	if c.Drift.Window <= 0 || c.Drift.MinSamples <= 0 || c.Drift.MinSamples > c.Drift.Window {
		return fmt.Errorf("drift requires 0 < min_samples <= window, got %d/%d", c.Drift.MinSamples, c.Drift.Window)
	}
	if c.Drift.Baseline <= 0 || c.Drift.Baseline > 1 {
		return fmt.Errorf("drift.baseline must be within (0,1], got %f", c.Drift.Baseline)
	}

	if c.Pipeline.RetryCount < 1 {
		return fmt.Errorf("pipeline.retry_count must be >= 1, got %d", c.Pipeline.RetryCount)
	}

	switch c.Lock.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("lock.backend must be 'file' or 'redis', got %q", c.Lock.Backend)
	}
	if c.Lock.Backend == "redis" && c.Lock.RedisAddr == "" {
		return fmt.Errorf("lock.redis_addr (or REDIS_ADDR) is required for the redis lock")
	}

	switch c.History.Backend {
	case "file", "postgres":
	default:
		return fmt.Errorf("history.backend must be 'file' or 'postgres', got %q", c.History.Backend)
	}
	if c.History.Backend == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn (or PG_DSN) is required for the postgres history backend")
	}

	switch c.Collector.Kind {
	case "file", "http":
	default:
		return fmt.Errorf("collector.kind must be 'file' or 'http', got %q", c.Collector.Kind)
	}
	if c.Collector.Kind == "http" && c.Collector.BaseURL == "" {
		return fmt.Errorf("collector.base_url is required for the http collector")
	}

	return nil
}
