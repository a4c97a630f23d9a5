package freshness

import (
	"sort"

	"github.com/sawpanic/riskgate/internal/domain"
)

// Field describes one input key: its primitive type, decay half-life and owning gates
type Field struct {
	Key          string      `json:"key"`
	Kind         domain.Kind `json:"kind"`
	HalfLifeDays float64     `json:"half_life_days"`
	Required     bool        `json:"required"`
	Gates        []string    `json:"gates"`
}

// Input keys shared by the gates and the evaluation engine
const (
	KeyDXY5d              = "dxy5d"
	KeyDXYUpDays          = "dxyUpDays"
	KeyUS2Y7dBp           = "us2y7dBp"
	KeyUS10Y7dBp          = "us10y7dBp"
	KeyRealYield7dBp      = "realYield7dBp"
	KeyFCIUpWeeks         = "fciUpWeeks"
	KeyRRPChange7d        = "rrpChange7d"
	KeyTGAChange7d        = "tgaChange7d"
	KeyFedBalance4w       = "fedBalance4w"
	KeyETF1d              = "etf1d"
	KeyETF5d              = "etf5d"
	KeyETF10d             = "etf10d"
	KeyVolumeConfirmed    = "volumeConfirmed"
	KeyStablecoin30d      = "stablecoin30d"
	KeyExchStableDelta    = "exchStableDelta"
	KeyPolicyWindow       = "policyWindow"
	KeyUS2YSinceBaseline  = "us2ySinceBaseline"
	KeyDXYSinceBaseline   = "dxySinceBaseline"
	KeyLiquidationUSD     = "liquidationUsd"
	KeyCrowdingIndex      = "crowdingIndex"
	KeyFundingRate        = "fundingRate"
	KeyMcapElasticity     = "mcapElasticity"
	KeyMcapGrowth         = "mcapGrowth"
	KeyExchBalanceTrend   = "exchBalanceTrend"
	KeyRSD                = "rsd"
	KeyLSTC               = "lstc"
	KeyBuyWallScore       = "buyWallScore"
	KeySupplyScore        = "supplyScore"
	KeyLeverageHealth     = "leverageHealth"
	KeyTrendScore         = "trendScore"
	KeyDivergenceScore    = "divergenceScore"
	KeyReversalSignal     = "reversalSignal"
	KeyCognitivePotential = "cognitivePotential"
	KeyLiquidityPotential = "liquidityPotential"
	KeyOnchainReflexivity = "onchainReflexivity"
	KeySentimentIndex     = "sentimentIndex"
	KeyTriMacro           = "triMacro"
	KeyTriFlow            = "triFlow"
	KeyTriOnchain         = "triOnchain"
	KeyBTCPrice           = "btcPrice"
)

func num(key string, halfLife float64, gates ...string) Field {
	return Field{Key: key, Kind: domain.KindNumber, HalfLifeDays: halfLife, Required: true, Gates: gates}
}

func flag(key string, halfLife float64, gates ...string) Field {
	return Field{Key: key, Kind: domain.KindBool, HalfLifeDays: halfLife, Required: true, Gates: gates}
}

func optional(f Field) Field {
	f.Required = false
	return f
}

// defaultFields is the built-in schema. Half-lives follow how fast each series moves:
// flows and derivatives decay in days, structural on-chain series over weeks.
var defaultFields = []Field{
	num(KeyDXY5d, 3, "macro", "ataf"),
	num(KeyDXYUpDays, 2, "macro"),
	num(KeyUS2Y7dBp, 3, "macro", "ataf"),
	num(KeyUS10Y7dBp, 3, "ataf"),
	num(KeyRealYield7dBp, 5, "ataf"),
	num(KeyFCIUpWeeks, 10, "macro", "ataf"),
	num(KeyRRPChange7d, 7, "ataf"),
	num(KeyTGAChange7d, 7, "ataf"),
	num(KeyFedBalance4w, 14, "ataf"),
	num(KeyETF1d, 2, "etf"),
	num(KeyETF5d, 3, "etf", "bcm", "distribution"),
	num(KeyETF10d, 3, "liquidity", "leverage"),
	flag(KeyVolumeConfirmed, 2, "etf"),
	num(KeyStablecoin30d, 7, "liquidity", "bcm"),
	num(KeyExchStableDelta, 5, "liquidity", "bcm"),
	flag(KeyPolicyWindow, 2, "riskon"),
	optional(num(KeyUS2YSinceBaseline, 2, "riskon")),
	optional(num(KeyDXYSinceBaseline, 2, "riskon")),
	num(KeyLiquidationUSD, 2, "leverage"),
	num(KeyCrowdingIndex, 3, "leverage", "bcm"),
	optional(num(KeyFundingRate, 2, "bcm")),
	num(KeyMcapElasticity, 30, "supply"),
	num(KeyMcapGrowth, 30, "supply"),
	num(KeyExchBalanceTrend, 14, "supply", "bcm", "distribution"),
	num(KeyRSD, 14, "svc"),
	num(KeyLSTC, 14, "svc"),
	num(KeyBuyWallScore, 3, "bpi"),
	num(KeySupplyScore, 21, "bpi"),
	num(KeyLeverageHealth, 5, "bpi"),
	num(KeyTrendScore, 7, "phase"),
	num(KeyDivergenceScore, 7, "phase"),
	optional(flag(KeyReversalSignal, 5, "phase")),
	num(KeyCognitivePotential, 14, "be"),
	num(KeyLiquidityPotential, 7, "be"),
	num(KeyOnchainReflexivity, 21, "be"),
	num(KeySentimentIndex, 2, "be"),
	num(KeyTriMacro, 7, "tri"),
	num(KeyTriFlow, 5, "tri"),
	num(KeyTriOnchain, 14, "tri"),
	num(KeyBTCPrice, 2, "evaluation"),
}

// Schema is the registry of declared input fields
type Schema struct {
	fields          map[string]Field
	defaultHalfLife float64
}

// DefaultSchema returns the built-in field registry with a 7-day fallback half-life
func DefaultSchema() *Schema {
	return NewSchema(defaultFields, 7, nil)
}

// NewSchema builds a registry; overrides replace per-field half-lives
func NewSchema(fields []Field, defaultHalfLife float64, overrides map[string]float64) *Schema {
	s := &Schema{fields: make(map[string]Field, len(fields)), defaultHalfLife: defaultHalfLife}
	for _, f := range fields {
		if h, ok := overrides[f.Key]; ok {
			f.HalfLifeDays = h
		}
		s.fields[f.Key] = f
	}
	return s
}

// HalfLife returns the field half-life, or the default for undeclared keys
func (s *Schema) HalfLife(key string) float64 {
	if f, ok := s.fields[key]; ok && f.HalfLifeDays > 0 {
		return f.HalfLifeDays
	}
	return s.defaultHalfLife
}

// Field looks up a declared field
func (s *Schema) Field(key string) (Field, bool) {
	f, ok := s.fields[key]
	return f, ok
}

// Keys returns every declared key, sorted
func (s *Schema) Keys() []string {
	keys := make([]string, 0, len(s.fields))
	for k := range s.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Required returns the keys that must be non-null before gates run
func (s *Schema) Required() []string {
	var keys []string
	for _, k := range s.Keys() {
		if s.fields[k].Required {
			keys = append(keys, k)
		}
	}
	return keys
}
