package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config bounds outbound requests to one upstream
type Config struct {
	MaxConcurrency int
	RequestTimeout time.Duration
	UserAgent      string
}

// Pool is an http.Client with a concurrency cap and request accounting
type Pool struct {
	config    Config
	semaphore chan struct{}
	client    *http.Client
	mu        sync.RWMutex
	stats     Stats
}

// Stats counts requests seen by a pool
type Stats struct {
	TotalRequests   int64         `json:"total_requests"`
	SuccessRequests int64         `json:"success_requests"`
	FailedRequests  int64         `json:"failed_requests"`
	TotalLatency    time.Duration `json:"total_latency"`
	EWMALatency     time.Duration `json:"ewma_latency"`
}

// NewPool creates a pool; MaxConcurrency below 1 means one request at a time
func NewPool(config Config) *Pool {
	if config.MaxConcurrency < 1 {
		config.MaxConcurrency = 1
	}
	return &Pool{
		config:    config,
		semaphore: make(chan struct{}, config.MaxConcurrency),
		client:    &http.Client{Timeout: config.RequestTimeout},
	}
}

// Do sends req once the concurrency slot is free. A response with a 5xx status
// is returned to the caller and counted as failed.
func (p *Pool) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	select {
	case p.semaphore <- struct{}{}:
		defer func() { <-p.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if p.config.UserAgent != "" {
		req.Header.Set("User-Agent", p.config.UserAgent)
	}

	start := time.Now()
	resp, err := p.client.Do(req.WithContext(ctx))
	p.record(time.Since(start), err == nil && resp.StatusCode < 500)

	if err != nil {
		log.Debug().Err(err).Str("url", req.URL.String()).Msg("HTTP request failed")
		return nil, fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	return resp, nil
}

// Stats returns a copy of the counters
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

func (p *Pool) record(d time.Duration, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stats.TotalRequests == 0 {
		p.stats.EWMALatency = d
	} else {
		const alpha = 0.1
		p.stats.EWMALatency = time.Duration(float64(p.stats.EWMALatency)*(1-alpha) + float64(d)*alpha)
	}
	p.stats.TotalRequests++
	p.stats.TotalLatency += d
	if ok {
		p.stats.SuccessRequests++
	} else {
		p.stats.FailedRequests++
	}
}
