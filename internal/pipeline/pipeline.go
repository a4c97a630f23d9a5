// Package pipeline runs one decision per date: collect, freshen, gate, decide, persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/riskgate/internal/collector"
	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/decision"
	"github.com/sawpanic/riskgate/internal/domain"
	"github.com/sawpanic/riskgate/internal/evaluation"
	"github.com/sawpanic/riskgate/internal/freshness"
	"github.com/sawpanic/riskgate/internal/gates"
	"github.com/sawpanic/riskgate/internal/history"
	"github.com/sawpanic/riskgate/internal/lock"
	"github.com/sawpanic/riskgate/internal/metrics"
	"github.com/sawpanic/riskgate/internal/persistence"
)

// Deps are the external collaborators of a pipeline
type Deps struct {
	Collector collector.Collector
	Repo      persistence.HistoryRepo
	Locker    lock.Locker
	Seed      evaluation.PriceSeed
	Metrics   *metrics.Registry
}

// Pipeline wires the core engines to their adapters
type Pipeline struct {
	cfg       *config.Config
	policy    *freshness.Policy
	gates     *gates.Engine
	decider   *decision.Decider
	eval      *evaluation.Engine
	collector collector.Collector
	repo      persistence.HistoryRepo
	locker    lock.Locker
	seed      evaluation.PriceSeed
	metrics   *metrics.Registry
	newID     func() string
	sleep     func(ctx context.Context, d time.Duration) error
}

// Outcome describes one run
type Outcome struct {
	RunID         string                   `json:"run_id"`
	Date          domain.Date              `json:"date"`
	Skipped       bool                     `json:"skipped"`
	Decision      *domain.Decision         `json:"decision,omitempty"`
	Gated         []string                 `json:"gated,omitempty"`
	Backfill      freshness.BackfillReport `json:"backfill"`
	Merged        bool                     `json:"merged"`
	StepDurations map[string]time.Duration `json:"step_durations"`
}

// New creates a pipeline. Missing metrics get a private registry.
func New(cfg *config.Config, deps Deps) *Pipeline {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRegistry()
	}
	if deps.Seed == nil {
		deps.Seed = evaluation.PriceSeed{}
	}
	return &Pipeline{
		cfg:       cfg,
		policy:    freshness.FromConfig(cfg.Freshness),
		gates:     gates.NewEngine(cfg.Gates),
		decider:   decision.New(cfg),
		eval:      evaluation.NewEngine(cfg.Evaluation),
		collector: deps.Collector,
		repo:      deps.Repo,
		locker:    deps.Locker,
		seed:      deps.Seed,
		metrics:   deps.Metrics,
		newID:     func() string { return uuid.New().String() },
		sleep:     sleepCtx,
	}
}

// Policy exposes the freshness policy the pipeline runs with
func (p *Pipeline) Policy() *freshness.Policy { return p.policy }

// Run executes the pipeline for date with input from the collector
func (p *Pipeline) Run(ctx context.Context, date domain.Date) (*Outcome, error) {
	return p.run(ctx, date, nil)
}

// RunInput executes the pipeline for date with a caller-supplied raw input
func (p *Pipeline) RunInput(ctx context.Context, date domain.Date, raw *domain.Input) (*Outcome, error) {
	if raw == nil {
		return nil, errors.New("raw input is required")
	}
	return p.run(ctx, date, raw)
}

func (p *Pipeline) run(ctx context.Context, date domain.Date, raw *domain.Input) (*Outcome, error) {
	out := &Outcome{RunID: p.newID(), Date: date, StepDurations: make(map[string]time.Duration)}

	release, err := p.acquire(ctx, out)
	if errors.Is(err, lock.ErrLocked) {
		out.Skipped = true
		p.metrics.RecordRun(metrics.ResultSkipped)
		log.Info().Str("date", date.String()).Str("run_id", out.RunID).Msg("Another run holds the lock, skipping")
		return out, nil
	}
	if err != nil {
		p.metrics.RecordRun(metrics.ResultError)
		return out, err
	}
	defer func() {
		if rerr := release(context.Background()); rerr != nil {
			log.Warn().Err(rerr).Str("run_id", out.RunID).Msg("Failed to release run lock")
		}
	}()

	if err := p.runLocked(ctx, date, raw, out); err != nil {
		p.metrics.RecordRun(metrics.ResultError)
		log.Error().Err(err).Str("date", date.String()).Str("run_id", out.RunID).Msg("Pipeline run failed")
		return out, err
	}
	p.metrics.RecordRun(metrics.ResultSuccess)
	return out, nil
}

func (p *Pipeline) acquire(ctx context.Context, out *Outcome) (lock.Release, error) {
	timer := p.metrics.StartStep(metrics.StepLock)
	if p.locker == nil {
		out.StepDurations[string(metrics.StepLock)] = timer.Stop(metrics.ResultSkipped)
		return func(context.Context) error { return nil }, nil
	}
	release, err := p.locker.Acquire(ctx, out.RunID)
	switch {
	case errors.Is(err, lock.ErrLocked):
		out.StepDurations[string(metrics.StepLock)] = timer.Stop(metrics.ResultSkipped)
	case err != nil:
		out.StepDurations[string(metrics.StepLock)] = timer.Stop(metrics.ResultError)
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	default:
		out.StepDurations[string(metrics.StepLock)] = timer.Stop(metrics.ResultSuccess)
	}
	return release, err
}

// runLocked is the body of one run. The caller holds the run lock.
func (p *Pipeline) runLocked(ctx context.Context, date domain.Date, raw *domain.Input, out *Outcome) error {
	entries, err := p.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	store := history.New(entries...)

	if raw == nil {
		timer := p.metrics.StartStep(metrics.StepCollect)
		raw, err = p.collector.Collect(ctx, date)
		if err != nil {
			out.StepDurations[string(metrics.StepCollect)] = timer.Stop(metrics.ResultError)
			return fmt.Errorf("failed to collect input for %s: %w", date, err)
		}
		out.StepDurations[string(metrics.StepCollect)] = timer.Stop(metrics.ResultSuccess)
	}
	// the gate and backfill write into the input; the caller's copy stays untouched
	raw = raw.Clone()
	raw.Date = date

	timer := p.metrics.StartStep(metrics.StepFreshen)
	in := raw
	if existing, ok := store.Get(date); ok && existing.Input != nil {
		in = p.policy.MergePreferFresh(existing.Input, raw, nil, date)
		out.Merged = true
	}
	out.Gated = p.policy.ApplyStaleGate(in, nil, date)
	out.Backfill = p.policy.BackfillMissing(in, store, date)
	p.recordFreshness(out)

	if err := p.policy.Validate(in); err != nil {
		out.StepDurations[string(metrics.StepFreshen)] = timer.Stop(metrics.ResultError)
		return fmt.Errorf("run for %s rejected: %w", date, err)
	}
	out.StepDurations[string(metrics.StepFreshen)] = timer.Stop(metrics.ResultSuccess)

	timer = p.metrics.StartStep(metrics.StepGates)
	results := p.gates.Evaluate(in)
	out.StepDurations[string(metrics.StepGates)] = timer.Stop(metrics.ResultSuccess)

	timer = p.metrics.StartStep(metrics.StepDrift)
	drift := p.eval.DriftAsOf(store.EntriesThrough(date), p.seed, date, p.cfg.Drift)
	out.StepDurations[string(metrics.StepDrift)] = timer.Stop(metrics.ResultSuccess)

	timer = p.metrics.StartStep(metrics.StepDecide)
	var prev *domain.HistoryEntry
	if e, ok := store.LatestBefore(date); ok {
		prev = &e
	}
	dec := p.decider.Decide(decision.Context{Input: in, Gates: results, Previous: prev, Drift: drift})
	out.StepDurations[string(metrics.StepDecide)] = timer.Stop(metrics.ResultSuccess)

	timer = p.metrics.StartStep(metrics.StepPersist)
	entry := domain.HistoryEntry{Date: date, Input: in, Output: dec}
	if err := p.repo.Upsert(ctx, entry); err != nil {
		out.StepDurations[string(metrics.StepPersist)] = timer.Stop(metrics.ResultError)
		return fmt.Errorf("failed to persist %s: %w", date, err)
	}
	out.StepDurations[string(metrics.StepPersist)] = timer.Stop(metrics.ResultSuccess)

	out.Decision = dec
	p.metrics.RecordDecision(dec)

	log.Info().
		Str("date", date.String()).
		Str("run_id", out.RunID).
		Str("state", string(dec.State)).
		Float64("beta", dec.Beta).
		Float64("confidence", dec.Confidence).
		Str("drift", string(dec.ModelRisk.Level)).
		Int("gated", len(out.Gated)).
		Int("backfilled", len(out.Backfill.Filled)).
		Bool("hedge", dec.Hedge).
		Msg("Decision recorded")
	return nil
}

func (p *Pipeline) recordFreshness(out *Outcome) {
	p.metrics.GatedFields.Add(float64(len(out.Gated)))
	p.metrics.BackfilledFields.WithLabelValues(metrics.BackfillRecovered).Add(float64(len(out.Backfill.Filled)))
	p.metrics.BackfilledFields.WithLabelValues(metrics.BackfillStale).Add(float64(len(out.Backfill.StaleBlocked)))
	p.metrics.BackfilledFields.WithLabelValues(metrics.BackfillNotFound).Add(float64(len(out.Backfill.Missing)))

	if len(out.Gated) > 0 || len(out.Backfill.StaleBlocked) > 0 {
		log.Warn().
			Str("date", out.Date.String()).
			Strs("gated", out.Gated).
			Strs("stale_blocked", out.Backfill.StaleBlocked).
			Msg("Stale inputs withheld")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
