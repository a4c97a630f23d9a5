package log

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Progress reports advancement through a fixed number of steps with an ETA
type Progress struct {
	mu        sync.Mutex
	name      string
	total     int
	current   int
	failed    int
	startTime time.Time
	now       func() time.Time
}

// NewProgress starts tracking name over total steps
func NewProgress(name string, total int) *Progress {
	return &Progress{name: name, total: total, startTime: time.Now(), now: time.Now}
}

// Step records one finished step and logs the running totals
func (p *Progress) Step(label string, ok bool) {
	p.mu.Lock()
	p.current++
	if !ok {
		p.failed++
	}
	current, failed := p.current, p.failed
	eta := p.etaLocked()
	p.mu.Unlock()

	log.Info().
		Str("task", p.name).
		Str("step", label).
		Bool("ok", ok).
		Int("done", current).
		Int("total", p.total).
		Int("failed", failed).
		Float64("pct", p.Percent()).
		Dur("eta", eta).
		Msg("Progress")
}

// Percent returns completion in [0, 100]
func (p *Progress) Percent() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total <= 0 {
		return 100
	}
	return float64(p.current) / float64(p.total) * 100
}

// ETA estimates the remaining time from the average step duration
func (p *Progress) ETA() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.etaLocked()
}

func (p *Progress) etaLocked() time.Duration {
	if p.current == 0 || p.current >= p.total {
		return 0
	}
	per := p.now().Sub(p.startTime) / time.Duration(p.current)
	return per * time.Duration(p.total-p.current)
}

// Counts returns done and failed step counts
func (p *Progress) Counts() (done, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.failed
}
