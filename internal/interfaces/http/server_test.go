package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	"github.com/sawpanic/riskgate/internal/evaluation"
	"github.com/sawpanic/riskgate/internal/explain"
	"github.com/sawpanic/riskgate/internal/metrics"
	"github.com/sawpanic/riskgate/internal/persistence/file"
)

func entry(date domain.Date, state domain.State, price float64) domain.HistoryEntry {
	in := domain.NewInput(date)
	in.Set("btcPrice", domain.Number(price), domain.FieldProvenance{Source: "test"})
	return domain.HistoryEntry{
		Date:  date,
		Input: in,
		Output: &domain.Decision{
			Date:        date,
			State:       state,
			Beta:        0.45,
			BetaCap:     0.6,
			Confidence:  0.55,
			ReasonsTop3: []string{"state " + string(state)},
			Gates:       []domain.GateResult{{ID: "macro", Name: "Macro", Status: domain.GateOpen, Note: "calm"}},
		},
	}
}

func newTestServer(t *testing.T, entries ...domain.HistoryEntry) (*httptest.Server, *metrics.Registry) {
	t.Helper()
	repo := file.NewHistoryRepo(filepath.Join(t.TempDir(), "history.json"))
	for _, e := range entries {
		require.NoError(t, repo.Upsert(context.Background(), e))
	}
	cfg := config.Default()
	reg := metrics.NewRegistry()
	h := NewHandlers(Deps{
		Repo:    repo,
		Health:  repo,
		Metrics: reg,
		Seed:    evaluation.PriceSeed{},
		Config:  &cfg,
		Version: "test",
	})
	h.now = func() time.Time { return time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC) }

	srv := httptest.NewServer(NewServer(cfg.HTTP, h).Handler())
	t.Cleanup(srv.Close)
	return srv, reg
}

func getJSON(t *testing.T, url string, into interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv, reg := newTestServer(t)
	reg.Beta.Set(0.3)

	var body HealthResponse
	resp := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "test", body.Version)
	assert.Equal(t, 0.3, body.Latest.Beta)
	require.NotNil(t, body.History)
	assert.Equal(t, "pass", body.Checks["history_load"].Status)
}

func TestLatestDecision(t *testing.T) {
	srv, _ := newTestServer(t,
		entry("2024-03-01", domain.StateA, 60000),
		entry("2024-03-02", domain.StateB, 61000),
	)

	var d domain.Decision
	resp := getJSON(t, srv.URL+"/decision/latest", &d)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.Date("2024-03-02"), d.Date)
	assert.Equal(t, domain.StateB, d.State)
}

func TestLatestDecisionEmptyHistory(t *testing.T) {
	srv, _ := newTestServer(t)
	var e ErrorResponse
	resp := getJSON(t, srv.URL+"/decision/latest", &e)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "no_decision", e.Code)
	assert.NotEmpty(t, e.RequestID)
}

func TestDecisionByDate(t *testing.T) {
	srv, _ := newTestServer(t, entry("2024-03-01", domain.StateA, 60000))

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"found", "/decision/2024-03-01", http.StatusOK},
		{"missing", "/decision/2024-03-05", http.StatusNotFound},
		{"invalid", "/decision/yesterday", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := getJSON(t, srv.URL+tt.path, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestExplainEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, entry("2024-03-01", domain.StateC, 60000))

	var p explain.Prompt
	resp := getJSON(t, srv.URL+"/explain/2024-03-01", &p)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StateC, p.State)
	require.Len(t, p.Gates, 1)
	assert.Equal(t, "calm", p.Gates[0].Note)
}

func TestEvaluationRespectsAsOf(t *testing.T) {
	srv, _ := newTestServer(t,
		entry("2024-03-01", domain.StateA, 60000),
		entry("2024-03-08", domain.StateA, 66000),
	)

	var early evaluation.Report
	getJSON(t, srv.URL+"/evaluation?asOf=2024-03-05", &early)
	for _, row := range early.Rows {
		if row.Date == "2024-03-01" && row.Horizon == 7 {
			assert.Equal(t, evaluation.VerdictPending, row.Verdict)
			assert.True(t, row.BlockedByAsOf)
		}
	}

	var late evaluation.Report
	getJSON(t, srv.URL+"/evaluation?asOf=2024-03-10", &late)
	found := false
	for _, row := range late.Rows {
		if row.Date == "2024-03-01" && row.Horizon == 7 {
			found = true
			assert.Equal(t, evaluation.VerdictHit, row.Verdict)
		}
	}
	assert.True(t, found)

	resp := getJSON(t, srv.URL+"/evaluation?asOf=soon", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDriftEndpointUnknownWithoutSamples(t *testing.T) {
	srv, _ := newTestServer(t, entry("2024-03-01", domain.StateA, 60000))

	var sig domain.DriftSignal
	resp := getJSON(t, srv.URL+"/drift", &sig)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.DriftUnknown, sig.Level)
	assert.Equal(t, 1.0, sig.BetaMultiplier)
}

func TestMetricsAndNotFound(t *testing.T) {
	srv, reg := newTestServer(t)
	reg.RecordRun(metrics.ResultSuccess)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))

	var e ErrorResponse
	nf := getJSON(t, srv.URL+"/nope", &e)
	assert.Equal(t, http.StatusNotFound, nf.StatusCode)
	assert.Equal(t, "endpoint_not_found", e.Code)
}
