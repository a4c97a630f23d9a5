package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/riskgate/internal/domain"
)

// Step identifies a pipeline stage for timing
type Step string

const (
	StepLock     Step = "lock"
	StepCollect  Step = "collect"
	StepFreshen  Step = "freshness"
	StepGates    Step = "gates"
	StepDrift    Step = "drift"
	StepDecide   Step = "decide"
	StepPersist  Step = "persist"
	StepBackfill Step = "backfill"
)

// Result is the outcome label attached to steps and runs
type Result string

const (
	ResultSuccess Result = "success"
	ResultError   Result = "error"
	ResultSkipped Result = "skipped"
)

// Backfill outcomes
const (
	BackfillRecovered = "recovered"
	BackfillStale     = "stale"
	BackfillNotFound  = "not_found"
)

// Registry holds every riskgate collector on its own prometheus registry
type Registry struct {
	reg *prometheus.Registry

	StepDuration     *prometheus.HistogramVec
	Runs             *prometheus.CounterVec
	GatedFields      prometheus.Counter
	BackfilledFields *prometheus.CounterVec
	State            prometheus.Gauge
	Beta             prometheus.Gauge
	Confidence       prometheus.Gauge
	DriftAccuracy    prometheus.Gauge
	DriftLevel       prometheus.Gauge
}

// NewRegistry creates and registers the riskgate metrics
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskgate_step_duration_seconds",
				Help:    "Duration of pipeline steps",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"step", "result"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskgate_runs_total",
				Help: "Daily runs by result",
			},
			[]string{"result"},
		),
		GatedFields: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskgate_gated_fields_total",
			Help: "Input fields nulled by the stale gate",
		}),
		BackfilledFields: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskgate_backfilled_fields_total",
				Help: "Missing fields handled by history backfill",
			},
			[]string{"outcome"},
		),
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskgate_state",
			Help: "Latest decision state (0=A, 1=B, 2=C)",
		}),
		Beta: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskgate_beta",
			Help: "Latest final beta",
		}),
		Confidence: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskgate_confidence",
			Help: "Latest decision confidence",
		}),
		DriftAccuracy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskgate_drift_accuracy",
			Help: "Rolling accuracy over the drift window",
		}),
		DriftLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskgate_drift_level",
			Help: "Drift level (0=unknown, 1=ok, 2=warn, 3=danger)",
		}),
	}

	r.reg.MustRegister(
		r.StepDuration,
		r.Runs,
		r.GatedFields,
		r.BackfilledFields,
		r.State,
		r.Beta,
		r.Confidence,
		r.DriftAccuracy,
		r.DriftLevel,
	)
	return r
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// StateValue maps a state onto the riskgate_state gauge
func StateValue(s domain.State) float64 {
	switch s {
	case domain.StateA:
		return 0
	case domain.StateB:
		return 1
	default:
		return 2
	}
}

// DriftValue maps a drift level onto the riskgate_drift_level gauge
func DriftValue(l domain.DriftLevel) float64 {
	switch l {
	case domain.DriftOK:
		return 1
	case domain.DriftWarn:
		return 2
	case domain.DriftDanger:
		return 3
	default:
		return 0
	}
}

// RecordDecision publishes the headline numbers of a decision
func (r *Registry) RecordDecision(d *domain.Decision) {
	if d == nil {
		return
	}
	r.State.Set(StateValue(d.State))
	r.Beta.Set(d.Beta)
	r.Confidence.Set(d.Confidence)
	r.DriftLevel.Set(DriftValue(d.ModelRisk.Level))
	if d.ModelRisk.Accuracy != nil {
		r.DriftAccuracy.Set(*d.ModelRisk.Accuracy)
	}
}

// RecordRun counts one run outcome
func (r *Registry) RecordRun(result Result) {
	r.Runs.WithLabelValues(string(result)).Inc()
}

// Snapshot is the current value of the decision gauges
type Snapshot struct {
	State         float64 `json:"state"`
	Beta          float64 `json:"beta"`
	Confidence    float64 `json:"confidence"`
	DriftAccuracy float64 `json:"drift_accuracy"`
	DriftLevel    float64 `json:"drift_level"`
}

// Snapshot reads the gauges back for health reporting
func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		State:         gaugeValue(r.State),
		Beta:          gaugeValue(r.Beta),
		Confidence:    gaugeValue(r.Confidence),
		DriftAccuracy: gaugeValue(r.DriftAccuracy),
		DriftLevel:    gaugeValue(r.DriftLevel),
	}
}

func gaugeValue(g prometheus.Gauge) float64 {
	var m dto.Metric
	if err := g.Write(&m); err != nil || m.Gauge == nil {
		return 0
	}
	return m.Gauge.GetValue()
}

// StepTimer measures one pipeline step
type StepTimer struct {
	registry *Registry
	step     Step
	start    time.Time
}

// StartStep begins timing a step
func (r *Registry) StartStep(step Step) *StepTimer {
	return &StepTimer{registry: r, step: step, start: time.Now()}
}

// Stop records the step duration under result and returns it
func (t *StepTimer) Stop(result Result) time.Duration {
	elapsed := time.Since(t.start)
	t.registry.StepDuration.WithLabelValues(string(t.step), string(result)).Observe(elapsed.Seconds())

	log.Debug().
		Str("step", string(t.step)).
		Str("result", string(result)).
		Dur("duration", elapsed).
		Msg("Pipeline step completed")
	return elapsed
}
