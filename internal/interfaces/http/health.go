package http

import (
	"net/http"
	"runtime"
	"time"

	"github.com/sawpanic/riskgate/internal/metrics"
	"github.com/sawpanic/riskgate/internal/persistence"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                   `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp time.Time                `json:"timestamp"`
	Uptime    string                   `json:"uptime"`
	Version   string                   `json:"version"`
	System    SystemInfo               `json:"system"`
	History   *persistence.HealthCheck `json:"history,omitempty"`
	Latest    metrics.Snapshot         `json:"latest"`
	Checks    map[string]CheckResult   `json:"checks"`
}

// SystemInfo provides system-level information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	MemAlloc      uint64 `json:"mem_alloc_bytes"`
	NumGC         uint32 `json:"num_gc"`
}

// CheckResult represents individual health check results
type CheckResult struct {
	Status    string        `json:"status"` // "pass", "warn", "fail"
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Health reports process, history backend and latest-decision status
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: now.UTC(),
		Uptime:    now.Sub(h.startTime).Round(time.Second).String(),
		Version:   h.deps.Version,
		System:    systemInfo(),
		Latest:    h.deps.Metrics.Snapshot(),
		Checks:    make(map[string]CheckResult),
	}

	if h.deps.Health != nil {
		start := time.Now()
		hc := h.deps.Health.Health(r.Context())
		resp.History = &hc
		check := CheckResult{Status: "pass", Message: hc.Backend + " reachable", Duration: time.Since(start), Timestamp: now.UTC()}
		if !hc.Healthy {
			check.Status = "fail"
			check.Message = hc.Backend + " unhealthy"
			resp.Status = "unhealthy"
		}
		resp.Checks["history"] = check
	}

	if _, err := h.deps.Repo.Load(r.Context()); err != nil {
		resp.Checks["history_load"] = CheckResult{Status: "fail", Message: err.Error(), Timestamp: now.UTC()}
		resp.Status = "unhealthy"
	} else {
		resp.Checks["history_load"] = CheckResult{Status: "pass", Message: "history readable", Timestamp: now.UTC()}
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	status := http.StatusOK
	if resp.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}

func systemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		MemAlloc:      m.Alloc,
		NumGC:         m.NumGC,
	}
}
