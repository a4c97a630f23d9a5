package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/domain"
	"github.com/sawpanic/riskgate/internal/infrastructure/httpclient"
)

const maxSnapshotBytes = 4 << 20

// HTTPCollector fetches GET <base>/inputs/<date> behind a rate limiter and a circuit breaker
type HTTPCollector struct {
	baseURL string
	client  *httpclient.Pool
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPCollector creates an HTTP collector from config
func NewHTTPCollector(cfg config.CollectorConfig) *HTTPCollector {
	rps := cfg.RPS
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	maxFailures := cfg.MaxFailure
	if maxFailures == 0 {
		maxFailures = 5
	}

	settings := gobreaker.Settings{
		Name:        "collector",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoSnapshot)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("collector circuit breaker state change")
		},
	}

	return &HTTPCollector{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpclient.NewPool(httpclient.Config{MaxConcurrency: burst, RequestTimeout: cfg.Timeout, UserAgent: "riskgate-collector"}),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Collect fetches and decodes the snapshot for date
func (c *HTTPCollector) Collect(ctx context.Context, date domain.Date) (*domain.Input, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, date)
	})
	if err != nil {
		return nil, err
	}
	snap := result.(*Snapshot)
	return snap.ToInput(date, time.Now())
}

func (c *HTTPCollector) fetch(ctx context.Context, date domain.Date) (*Snapshot, error) {
	url := fmt.Sprintf("%s/inputs/%s", c.baseURL, date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("collector request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, date)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("collector returned HTTP %d for %s", resp.StatusCode, date)
	}

	var snap Snapshot
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSnapshotBytes)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// Stats reports request counters of the underlying client pool
func (c *HTTPCollector) Stats() httpclient.Stats {
	return c.client.Stats()
}

// State reports the circuit breaker state
func (c *HTTPCollector) State() gobreaker.State {
	return c.breaker.State()
}
