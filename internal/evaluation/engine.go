package evaluation

import (
	"math"
	"sort"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
)

// Verdict is the outcome of one prediction row
type Verdict string

const (
	VerdictHit     Verdict = "hit"
	VerdictMiss    Verdict = "miss"
	VerdictPending Verdict = "pending"
)

// PriceSeed is a secondary date→close lookup used when history has gaps
type PriceSeed map[domain.Date]float64

// Row grades one decision at one horizon
type Row struct {
	Date          domain.Date  `json:"date"`
	Horizon       int          `json:"horizon"`
	State         domain.State `json:"state"`
	Expectation   string       `json:"expectation"`
	Price         float64      `json:"price"`
	TargetDate    domain.Date  `json:"target_date"`
	FutureDate    domain.Date  `json:"future_date,omitempty"`
	FuturePrice   *float64     `json:"future_price"`
	ReturnPct     *float64     `json:"return_pct"`
	ThresholdPct  float64      `json:"threshold_pct"`
	Verdict       Verdict      `json:"verdict"`
	Hit           *bool        `json:"hit"`
	BlockedByAsOf bool         `json:"blocked_by_as_of"`
	Source        string       `json:"source,omitempty"`
}

// Matured reports whether the row has a verdict
func (r Row) Matured() bool { return r.Verdict != VerdictPending }

// Summary aggregates rows of one horizon
type Summary struct {
	Horizon       int      `json:"horizon"`
	Total         int      `json:"total"`
	Matured       int      `json:"matured"`
	Hits          int      `json:"hits"`
	Accuracy      *float64 `json:"accuracy"`
	MaturityRatio float64  `json:"maturity_ratio"`
}

// Report is the evaluation as of one date
type Report struct {
	AsOf      domain.Date `json:"as_of"`
	Rows      []Row       `json:"rows"`
	Summaries []Summary   `json:"summaries"`
}

// Expectation maps a state to the price move it predicts
func Expectation(s domain.State) string {
	switch s {
	case domain.StateA:
		return "up"
	case domain.StateC:
		return "down"
	}
	return "range"
}

// Engine grades past decisions without reading anything dated after asOf
type Engine struct {
	cfg config.EvaluationConfig
}

// NewEngine creates an evaluation engine
func NewEngine(cfg config.EvaluationConfig) *Engine {
	if cfg.PriceField == "" {
		cfg.PriceField = "btcPrice"
	}
	return &Engine{cfg: cfg}
}

type sample struct {
	price  float64
	source string
}

// Evaluate grades every entry dated on or before asOf at every horizon
func (e *Engine) Evaluate(entries []domain.HistoryEntry, seed PriceSeed, asOf domain.Date) Report {
	prices := e.priceIndex(entries, seed, asOf)

	report := Report{AsOf: asOf, Rows: []Row{}}
	for _, entry := range entries {
		if entry.Date.After(asOf) || entry.Output == nil || !entry.Output.State.Valid() {
			continue
		}
		base, ok := prices[entry.Date]
		if !ok || base.price <= 0 {
			continue
		}
		for _, h := range e.cfg.Horizons {
			report.Rows = append(report.Rows, e.grade(entry, base.price, h, prices, asOf))
		}
	}
	sort.SliceStable(report.Rows, func(i, j int) bool {
		if report.Rows[i].Date != report.Rows[j].Date {
			return report.Rows[i].Date < report.Rows[j].Date
		}
		return report.Rows[i].Horizon < report.Rows[j].Horizon
	})
	report.Summaries = Summarize(report.Rows, e.cfg.Horizons)
	return report
}

func (e *Engine) grade(entry domain.HistoryEntry, price float64, h int, prices map[domain.Date]sample, asOf domain.Date) Row {
	state := entry.Output.State
	row := Row{
		Date:         entry.Date,
		Horizon:      h,
		State:        state,
		Expectation:  Expectation(state),
		Price:        price,
		TargetDate:   entry.Date.AddDays(h),
		ThresholdPct: e.cfg.ThresholdPct[h],
		Verdict:      VerdictPending,
	}
	if row.TargetDate.After(asOf) {
		row.BlockedByAsOf = true
		return row
	}

	last := row.TargetDate.AddDays(e.cfg.ToleranceDays)
	if last.After(asOf) {
		last = asOf
	}
	for d := row.TargetDate; !d.After(last); d = d.AddDays(1) {
		s, ok := prices[d]
		if !ok {
			continue
		}
		fp := s.price
		ret := (fp/price - 1) * 100
		hit := hits(row.Expectation, ret, row.ThresholdPct)
		row.FutureDate = d
		row.FuturePrice = &fp
		row.ReturnPct = &ret
		row.Hit = &hit
		row.Source = s.source
		if hit {
			row.Verdict = VerdictHit
		} else {
			row.Verdict = VerdictMiss
		}
		break
	}
	return row
}

// priceIndex merges history prices and the seed. History wins for the same date and
// nothing after asOf is indexed.
func (e *Engine) priceIndex(entries []domain.HistoryEntry, seed PriceSeed, asOf domain.Date) map[domain.Date]sample {
	idx := make(map[domain.Date]sample, len(entries)+len(seed))
	for d, p := range seed {
		if d.After(asOf) || p <= 0 {
			continue
		}
		idx[d] = sample{price: p, source: "seed"}
	}
	for _, entry := range entries {
		if entry.Date.After(asOf) || entry.Input == nil {
			continue
		}
		if p, ok := entry.Input.Get(e.cfg.PriceField).Float(); ok && p > 0 {
			idx[entry.Date] = sample{price: p, source: "history"}
		}
	}
	return idx
}

func hits(expectation string, ret, threshold float64) bool {
	switch expectation {
	case "up":
		return ret >= threshold
	case "down":
		return ret <= -threshold
	}
	return math.Abs(ret) <= threshold
}

// Summarize aggregates rows per horizon. Accuracy counts matured rows only.
func Summarize(rows []Row, horizons []int) []Summary {
	out := make([]Summary, 0, len(horizons))
	for _, h := range horizons {
		s := Summary{Horizon: h}
		for _, r := range rows {
			if r.Horizon != h {
				continue
			}
			s.Total++
			if r.Matured() {
				s.Matured++
				if r.Verdict == VerdictHit {
					s.Hits++
				}
			}
		}
		if s.Matured > 0 {
			acc := float64(s.Hits) / float64(s.Matured)
			s.Accuracy = &acc
		}
		if s.Total > 0 {
			s.MaturityRatio = float64(s.Matured) / float64(s.Total)
		}
		out = append(out, s)
	}
	return out
}
