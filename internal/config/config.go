package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the single injected configuration for a riskgate process.
// Every threshold used by the gates, sizing and evaluation lives here.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Freshness  FreshnessConfig  `yaml:"freshness"`
	Gates      GatesConfig      `yaml:"gates"`
	Decision   DecisionConfig   `yaml:"decision"`
	Execution  ExecutionConfig  `yaml:"execution"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Drift      DriftConfig      `yaml:"drift"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Lock       LockConfig       `yaml:"lock"`
	Collector  CollectorConfig  `yaml:"collector"`
	History    HistoryConfig    `yaml:"history"`
	Database   DatabaseConfig   `yaml:"database"`
	HTTP       HTTPConfig       `yaml:"http"`
}

// FreshnessConfig holds per-field half-lives in days
type FreshnessConfig struct {
	DefaultHalfLifeDays float64            `yaml:"default_half_life_days"` // 7
	HalfLifeDays        map[string]float64 `yaml:"half_life_days"`         // overrides built-in schema
}

// GatesConfig holds every fixed rule threshold
type GatesConfig struct {
	Macro        MacroGate        `yaml:"macro"`
	Liquidity    LiquidityGate    `yaml:"liquidity"`
	Leverage     LeverageGate     `yaml:"leverage"`
	Supply       SupplyGate       `yaml:"supply"`
	ETF          ETFGate          `yaml:"etf"`
	Danger       DangerGate       `yaml:"danger"`
	SVC          SVCGate          `yaml:"svc"`
	BPI          BPIGate          `yaml:"bpi"`
	Phase        PhaseGate        `yaml:"phase"`
	BE           BEGate           `yaml:"be"`
	TriDomain    TriDomainGate    `yaml:"tri_domain"`
	ATAF         ATAFGate         `yaml:"ataf"`
	BCM          BCMGate          `yaml:"bcm"`
	Distribution DistributionGate `yaml:"distribution"`
}

type MacroGate struct {
	DXY5dChangePct   float64 `yaml:"dxy_5d_change_pct"`   // ≥1.0%
	DXYUpDays        float64 `yaml:"dxy_up_days"`         // 3 consecutive up-closes
	US2YWeeklyBp     float64 `yaml:"us2y_weekly_bp"`      // +10bp/week
	FCIUpWeeks       float64 `yaml:"fci_up_weeks"`        // ≥2 weeks
	ForceCMinTrigger int     `yaml:"force_c_min_trigger"` // ≥2 of 3
}

type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type LiquidityGate struct {
	ETF10dWeight    float64 `yaml:"etf_10d_weight"`
	Stable30dWeight float64 `yaml:"stable_30d_weight"`
	ExchStableWt    float64 `yaml:"exch_stable_weight"`
	ETF10dRange     Range   `yaml:"etf_10d_range"`
	Stable30dRange  Range   `yaml:"stable_30d_range"`
	ExchStableRange Range   `yaml:"exch_stable_range"`
	RedBelow        float64 `yaml:"red_below"`  // 35
	WarnBelow       float64 `yaml:"warn_below"` // 50
}

type LeverageGate struct {
	LiquidationHalfUSD float64 `yaml:"liquidation_half_usd"` // > $1B
	CrowdingThird      float64 `yaml:"crowding_third"`       // ≥80
	ETF10dThirdMax     float64 `yaml:"etf_10d_third_max"`    // ≤0
}

type SupplyGate struct {
	MinElasticity       float64 `yaml:"min_elasticity"`         // >0.75
	MinMcapGrowth       float64 `yaml:"min_mcap_growth"`        // >0.4
	MinExchBalanceTrend float64 `yaml:"min_exch_balance_trend"` // >-0.1
}

type ETFGate struct {
	FiveDayRedMax float64 `yaml:"five_day_red_max"` // ≤-400
}

type DangerGate struct {
	MacroWeight       float64 `yaml:"macro_weight"`
	LiquidityWeight   float64 `yaml:"liquidity_weight"`
	ETFWeight         float64 `yaml:"etf_weight"`
	LiquidationWeight float64 `yaml:"liquidation_weight"`
}

type SVCGate struct {
	ShiftUpAt       float64 `yaml:"shift_up_at"`       // ≥7
	ShiftDownAt     float64 `yaml:"shift_down_at"`     // ≤3
	ConfidenceUp    float64 `yaml:"confidence_up"`     // multiplier when ≥7
	ConfidenceDown  float64 `yaml:"confidence_down"`   // multiplier when ≤3
	ExtremeMinScore float64 `yaml:"extreme_min_score"` // ≥7
}

type BPIGate struct {
	ClosedBelow float64 `yaml:"closed_below"` // strength <0.4
	WarnBelow   float64 `yaml:"warn_below"`   // strength <0.6
}

type PhaseGate struct {
	TrendUpMid         float64 `yaml:"trend_up_mid"`          // >0.65
	DivergenceUpMidMax float64 `yaml:"divergence_up_mid_max"` // <0.45
	DivergenceLate     float64 `yaml:"divergence_late"`       // >0.65
}

type BEGate struct {
	BaseThreshold  float64 `yaml:"base_threshold"`  // potential must exceed this at neutral sentiment
	SentimentSlope float64 `yaml:"sentiment_slope"` // threshold scales by 1 + slope·(sentiment-50)/50
}

type TriDomainGate struct {
	Bar float64 `yaml:"bar"` // 0.5
}

type ATAFGate struct {
	BiasMargin int `yaml:"bias_margin"` // count difference strictly greater than this
}

type BCMGate struct {
	ConflictScore     float64 `yaml:"conflict_score"`     // both scores >0.5
	FundingOverheated float64 `yaml:"funding_overheated"` // per-period funding rate, >0.0003
}

type DistributionGate struct {
	BalanceTrend float64 `yaml:"balance_trend"` // |exchange balance trend| > 0.1
}

// DecisionConfig holds state, beta and confidence constants
type DecisionConfig struct {
	BiasA float64 `yaml:"bias_a"` // ≥65
	BiasC float64 `yaml:"bias_c"` // ≤35

	BiasNeutral         float64 `yaml:"bias_neutral"`          // 50, also the liquidity score centre
	BiasLiquidityWeight float64 `yaml:"bias_liquidity_weight"` // 0.35 per point of liquidity above centre
	BiasETF10dStep      float64 `yaml:"bias_etf_10d_step"`     // ±8 on the sign of etf10d
	BiasRiskOn          float64 `yaml:"bias_risk_on"`          // +10
	BiasBPIWeight       float64 `yaml:"bias_bpi_weight"`       // 25
	BiasBPIPivot        float64 `yaml:"bias_bpi_pivot"`        // 0.5
	BiasMacroClosed     float64 `yaml:"bias_macro_closed"`     // -12
	BiasLiquidationHalf float64 `yaml:"bias_liquidation_half"` // -10
	BiasDangerPerHit    float64 `yaml:"bias_danger_per_hit"`   // -6 per danger hit

	BetaBase map[string]float64 `yaml:"beta_base"` // A .75 B .45 C .2
	BetaCap  map[string]float64 `yaml:"beta_cap"`  // A .9 B .6 C .35
	CapShift float64            `yaml:"cap_shift"` // 0.1 per SVC step
	CapMin   float64            `yaml:"cap_min"`   // 0.2
	CapMax   float64            `yaml:"cap_max"`   // 1.0

	PenaltyThird           float64 `yaml:"penalty_third"`              // ×0.67
	PenaltyHalf            float64 `yaml:"penalty_half"`               // ×0.5
	PenaltyExtremeOutflow  float64 `yaml:"penalty_extreme_outflow"`    // ×0.8
	ExtremeOutflowETF1dMax float64 `yaml:"extreme_outflow_etf_1d_max"` // prior day etf1d ≤ -500

	ConfidenceBase     float64 `yaml:"confidence_base"`       // 0.52
	ConfidenceRiskOn   float64 `yaml:"confidence_risk_on"`    // +0.06
	ConfidenceBreakout float64 `yaml:"confidence_breakout"`   // +0.05
	ConfidenceMacro    float64 `yaml:"confidence_macro"`      // -0.08
	ConfidenceDanger   float64 `yaml:"confidence_danger"`     // -0.03 per danger hit
	DistributionBoost  float64 `yaml:"distribution_boost"`    // +0.04
	PhaseReversalBoost float64 `yaml:"phase_reversal_boost"`  // +0.03
	ConfidenceMin      float64 `yaml:"confidence_min"`        // 0.2
	ConfidenceMax      float64 `yaml:"confidence_max"`        // 0.95
	ExtremeMaxTailRisk float64 `yaml:"extreme_max_tail_risk"` // ≤0.6
}

// ExecutionConfig holds the turnover cost model
type ExecutionConfig struct {
	CostBps         float64 `yaml:"cost_bps"`
	MinEdgePct      float64 `yaml:"min_edge_pct"`     // 0.02
	EdgeSlope       float64 `yaml:"edge_slope"`       // 1.6
	ConfidencePivot float64 `yaml:"confidence_pivot"` // edge grows with confidence above 0.5
	HighPressure    float64 `yaml:"high_pressure"`    // ≥0.7
	MediumPressure  float64 `yaml:"medium_pressure"`  // ≥0.45
	HighMult        float64 `yaml:"high_mult"`        // ×0.82
	MediumMult      float64 `yaml:"medium_mult"`      // ×0.9
}

// EvaluationConfig holds horizons and hit thresholds
type EvaluationConfig struct {
	Horizons      []int           `yaml:"horizons"`       // 7, 14
	ThresholdPct  map[int]float64 `yaml:"threshold_pct"`  // 7→5, 14→8
	ToleranceDays int             `yaml:"tolerance_days"` // 3
	PriceField    string          `yaml:"price_field"`
	PriceSeedPath string          `yaml:"price_seed_path"`
}

// DriftConfig holds the rolling-accuracy window
type DriftConfig struct {
	Horizon    int     `yaml:"horizon"`     // 7
	Window     int     `yaml:"window"`      // 18
	MinSamples int     `yaml:"min_samples"` // 6
	Baseline   float64 `yaml:"baseline"`    // 0.55
	DangerGap  float64 `yaml:"danger_gap"`  // 0.18
	WarnGap    float64 `yaml:"warn_gap"`    // 0.08
	DangerMult float64 `yaml:"danger_mult"` // 0.72
	WarnMult   float64 `yaml:"warn_mult"`   // 0.86
}

// PipelineConfig holds batch backfill behaviour
type PipelineConfig struct {
	RetryCount       int           `yaml:"retry_count"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"` // linear: attempt × backoff
	PrefetchParallel int           `yaml:"prefetch_parallel"`
}

// LockConfig selects the single-writer advisory lock
type LockConfig struct {
	Backend   string        `yaml:"backend"` // file | redis
	Path      string        `yaml:"path"`
	RedisAddr string        `yaml:"redis_addr"`
	RedisKey  string        `yaml:"redis_key"`
	TTL       time.Duration `yaml:"ttl"`
}

// CollectorConfig selects where raw inputs come from
type CollectorConfig struct {
	Kind       string        `yaml:"kind"` // file | http
	Dir        string        `yaml:"dir"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	RPS        float64       `yaml:"rps"`
	Burst      int           `yaml:"burst"`
	MaxFailure uint32        `yaml:"max_failures"`
}

// HistoryConfig selects the persistence backend
type HistoryConfig struct {
	Backend string `yaml:"backend"` // file | postgres
	Path    string `yaml:"path"`
}

// DatabaseConfig mirrors the postgres connection pool settings
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

// HTTPConfig holds the read-only monitor settings
type HTTPConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Default returns production defaults
func Default() Config {
	return Config{
		LogLevel: "info",
		Freshness: FreshnessConfig{
			DefaultHalfLifeDays: 7,
			HalfLifeDays:        map[string]float64{},
		},
		Gates: GatesConfig{
			Macro: MacroGate{
				DXY5dChangePct:   1.0,
				DXYUpDays:        3,
				US2YWeeklyBp:     10,
				FCIUpWeeks:       2,
				ForceCMinTrigger: 2,
			},
			Liquidity: LiquidityGate{
				ETF10dWeight:    0.4,
				Stable30dWeight: 0.35,
				ExchStableWt:    0.25,
				ETF10dRange:     Range{Min: -800, Max: 800},
				Stable30dRange:  Range{Min: -8, Max: 8},
				ExchStableRange: Range{Min: -6, Max: 6},
				RedBelow:        35,
				WarnBelow:       50,
			},
			Leverage: LeverageGate{
				LiquidationHalfUSD: 1_000_000_000,
				CrowdingThird:      80,
				ETF10dThirdMax:     0,
			},
			Supply: SupplyGate{
				MinElasticity:       0.75,
				MinMcapGrowth:       0.4,
				MinExchBalanceTrend: -0.1,
			},
			ETF: ETFGate{FiveDayRedMax: -400},
			Danger: DangerGate{
				MacroWeight:       0.25,
				LiquidityWeight:   0.3,
				ETFWeight:         0.25,
				LiquidationWeight: 0.2,
			},
			SVC: SVCGate{
				ShiftUpAt:       7,
				ShiftDownAt:     3,
				ConfidenceUp:    1.08,
				ConfidenceDown:  0.9,
				ExtremeMinScore: 7,
			},
			BPI: BPIGate{ClosedBelow: 0.4, WarnBelow: 0.6},
			Phase: PhaseGate{
				TrendUpMid:         0.65,
				DivergenceUpMidMax: 0.45,
				DivergenceLate:     0.65,
			},
			BE:           BEGate{BaseThreshold: 0.12, SentimentSlope: 0.5},
			TriDomain:    TriDomainGate{Bar: 0.5},
			ATAF:         ATAFGate{BiasMargin: 1},
			BCM:          BCMGate{ConflictScore: 0.5, FundingOverheated: 0.0003},
			Distribution: DistributionGate{BalanceTrend: 0.1},
		},
		Decision: DecisionConfig{
			BiasA:                  65,
			BiasC:                  35,
			BiasNeutral:            50,
			BiasLiquidityWeight:    0.35,
			BiasETF10dStep:         8,
			BiasRiskOn:             10,
			BiasBPIWeight:          25,
			BiasBPIPivot:           0.5,
			BiasMacroClosed:        12,
			BiasLiquidationHalf:    10,
			BiasDangerPerHit:       6,
			BetaBase:               map[string]float64{"A": 0.75, "B": 0.45, "C": 0.2},
			BetaCap:                map[string]float64{"A": 0.9, "B": 0.6, "C": 0.35},
			CapShift:               0.1,
			CapMin:                 0.2,
			CapMax:                 1.0,
			PenaltyThird:           0.67,
			PenaltyHalf:            0.5,
			PenaltyExtremeOutflow:  0.8,
			ExtremeOutflowETF1dMax: -500,
			ConfidenceBase:         0.52,
			ConfidenceRiskOn:       0.06,
			ConfidenceBreakout:     0.05,
			ConfidenceMacro:        0.08,
			ConfidenceDanger:       0.03,
			DistributionBoost:      0.04,
			PhaseReversalBoost:     0.03,
			ConfidenceMin:          0.2,
			ConfidenceMax:          0.95,
			ExtremeMaxTailRisk:     0.6,
		},
		Execution: ExecutionConfig{
			CostBps:         12,
			MinEdgePct:      0.02,
			EdgeSlope:       1.6,
			ConfidencePivot: 0.5,
			HighPressure:    0.7,
			MediumPressure:  0.45,
			HighMult:        0.82,
			MediumMult:      0.9,
		},
		Evaluation: EvaluationConfig{
			Horizons:      []int{7, 14},
			ThresholdPct:  map[int]float64{7: 5, 14: 8},
			ToleranceDays: 3,
			PriceField:    "btcPrice",
		},
		Drift: DriftConfig{
			Horizon:    7,
			Window:     18,
			MinSamples: 6,
			Baseline:   0.55,
			DangerGap:  0.18,
			WarnGap:    0.08,
			DangerMult: 0.72,
			WarnMult:   0.86,
		},
		Pipeline: PipelineConfig{
			RetryCount:       3,
			RetryBackoff:     2 * time.Second,
			PrefetchParallel: 4,
		},
		Lock: LockConfig{
			Backend:  "file",
			Path:     "data/riskgate.lock",
			RedisKey: "riskgate:run-lock",
			TTL:      30 * time.Minute,
		},
		Collector: CollectorConfig{
			Kind:       "file",
			Dir:        "data/inputs",
			Timeout:    15 * time.Second,
			RPS:        2,
			Burst:      2,
			MaxFailure: 5,
		},
		History: HistoryConfig{
			Backend: "file",
			Path:    "data/history.json",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			QueryTimeout:    30 * time.Second,
		},
		HTTP: HTTPConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// LoadFile reads a YAML file over the defaults
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return cfg, nil
}

// Load returns defaults when path is empty, otherwise LoadFile; env overrides apply last
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// ApplyEnv overrides deployment settings from the environment
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PG_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Lock.RedisAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("RISKGATE_LOG_LEVEL")); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("RISKGATE_HISTORY_BACKEND")); v != "" {
		c.History.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("RISKGATE_LOCK_BACKEND")); v != "" {
		c.Lock.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("RISKGATE_COST_BPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Execution.CostBps = f
		}
	}
}
