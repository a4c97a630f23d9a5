package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	"github.com/sawpanic/riskgate/internal/evaluation"
	"github.com/sawpanic/riskgate/internal/explain"
	"github.com/sawpanic/riskgate/internal/metrics"
	"github.com/sawpanic/riskgate/internal/persistence"
)

// Deps are what the monitor reads from
type Deps struct {
	Repo    persistence.HistoryRepo
	Health  persistence.RepositoryHealth
	Metrics *metrics.Registry
	Seed    evaluation.PriceSeed
	Config  *config.Config
	Version string
}

// Handlers serves the read-only endpoints
type Handlers struct {
	deps      Deps
	eval      *evaluation.Engine
	startTime time.Time
	now       func() time.Time
}

// NewHandlers creates the handler set
func NewHandlers(deps Deps) *Handlers {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRegistry()
	}
	if deps.Seed == nil {
		deps.Seed = evaluation.PriceSeed{}
	}
	return &Handlers{
		deps:      deps,
		eval:      evaluation.NewEngine(deps.Config.Evaluation),
		startTime: time.Now(),
		now:       time.Now,
	}
}

// ErrorResponse is the JSON body of every non-2xx reply
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestID(r),
		Timestamp: h.now().UTC(),
	})
}

// Metrics serves the prometheus registry
func (h *Handlers) Metrics() http.Handler { return h.deps.Metrics.Handler() }

// NotFound handles unknown routes
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found", "The requested endpoint does not exist")
}

// LatestDecision returns the newest stored decision
func (h *Handlers) LatestDecision(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.Repo.Load(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "history_unavailable", err.Error())
		return
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Output != nil {
			h.writeJSON(w, http.StatusOK, entries[i].Output)
			return
		}
	}
	h.writeError(w, r, http.StatusNotFound, "no_decision", "No decision has been recorded yet")
}

// Decision returns the decision for /decision/{date}
func (h *Handlers) Decision(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entryFor(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, entry.Output)
}

// Explain returns the narrative prompt payload for /explain/{date}
func (h *Handlers) Explain(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entryFor(w, r)
	if !ok {
		return
	}
	prompt, err := explain.BuildPrompt(entry.Output)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "explain_failed", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, prompt)
}

func (h *Handlers) entryFor(w http.ResponseWriter, r *http.Request) (*domain.HistoryEntry, bool) {
	date, err := domain.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_date", err.Error())
		return nil, false
	}
	entry, err := h.deps.Repo.Get(r.Context(), date)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "history_unavailable", err.Error())
		return nil, false
	}
	if entry == nil || entry.Output == nil {
		h.writeError(w, r, http.StatusNotFound, "no_decision", "No decision recorded for "+date.String())
		return nil, false
	}
	return entry, true
}

// Evaluation returns rows and summaries as of ?asOf (default today UTC)
func (h *Handlers) Evaluation(w http.ResponseWriter, r *http.Request) {
	asOf, entries, ok := h.asOfHistory(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.eval.Evaluate(entries, h.deps.Seed, asOf))
}

// Drift returns the drift signal as of ?asOf (default today UTC)
func (h *Handlers) Drift(w http.ResponseWriter, r *http.Request) {
	asOf, entries, ok := h.asOfHistory(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.eval.DriftAsOf(entries, h.deps.Seed, asOf, h.deps.Config.Drift))
}

func (h *Handlers) asOfHistory(w http.ResponseWriter, r *http.Request) (domain.Date, []domain.HistoryEntry, bool) {
	asOf := domain.DateOf(h.now())
	if raw := r.URL.Query().Get("asOf"); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "invalid_date", err.Error())
			return "", nil, false
		}
		asOf = d
	}
	entries, err := h.deps.Repo.Load(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "history_unavailable", err.Error())
		return "", nil, false
	}
	return asOf, entries, true
}
