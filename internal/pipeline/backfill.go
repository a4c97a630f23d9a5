package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/riskgate/internal/collector"
	"github.com/sawpanic/riskgate/internal/domain"
	"github.com/sawpanic/riskgate/internal/lock"
	logprogress "github.com/sawpanic/riskgate/internal/log"
	"github.com/sawpanic/riskgate/internal/metrics"
)

// BatchReport summarizes a range backfill
type BatchReport struct {
	RunID     string                 `json:"run_id"`
	From      domain.Date            `json:"from"`
	To        domain.Date            `json:"to"`
	Skipped   bool                   `json:"skipped"`
	Completed []domain.Date          `json:"completed"`
	Failed    map[domain.Date]string `json:"failed"`
	Duration  time.Duration          `json:"duration"`
}

// Dates lists every date in [from, to]
func Dates(from, to domain.Date) []domain.Date {
	var out []domain.Date
	for d := from; !d.After(to); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// Backfill prefetches inputs for [from, to] with bounded concurrency, then runs
// each date in ascending order under one lock. The lease is refreshed before every
// date; losing it aborts the batch. A failed date is recorded and skipped.
func (p *Pipeline) Backfill(ctx context.Context, from, to domain.Date) (*BatchReport, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s is after %s", from, to)
	}
	start := time.Now()
	rep := &BatchReport{RunID: p.newID(), From: from, To: to, Failed: make(map[domain.Date]string)}
	dates := Dates(from, to)

	timer := p.metrics.StartStep(metrics.StepBackfill)
	inputs, fetchErrs := p.prefetch(ctx, dates)

	holder := &Outcome{RunID: rep.RunID, StepDurations: make(map[string]time.Duration)}
	release, err := p.acquire(ctx, holder)
	if errors.Is(err, lock.ErrLocked) {
		rep.Skipped = true
		timer.Stop(metrics.ResultSkipped)
		p.metrics.RecordRun(metrics.ResultSkipped)
		log.Info().Str("from", from.String()).Str("to", to.String()).Msg("Another run holds the lock, skipping backfill")
		return rep, nil
	}
	if err != nil {
		timer.Stop(metrics.ResultError)
		return rep, err
	}
	defer func() {
		if rerr := release(context.Background()); rerr != nil {
			log.Warn().Err(rerr).Str("run_id", rep.RunID).Msg("Failed to release run lock")
		}
	}()

	progress := logprogress.NewProgress("backfill", len(dates))
	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			timer.Stop(metrics.ResultError)
			return rep, err
		}
		if p.locker != nil {
			if err := p.locker.Refresh(ctx, rep.RunID); err != nil {
				timer.Stop(metrics.ResultError)
				log.Error().Err(err).Str("run_id", rep.RunID).Str("date", d.String()).Msg("Run lock lost, aborting backfill")
				return rep, fmt.Errorf("run lock lost during backfill at %s: %w", d, err)
			}
		}
		if ferr, ok := fetchErrs[d]; ok {
			rep.Failed[d] = ferr.Error()
			p.metrics.RecordRun(metrics.ResultError)
			log.Warn().Err(ferr).Str("date", d.String()).Msg("Backfill fetch failed, continuing")
			progress.Step(d.String(), false)
			continue
		}

		out := &Outcome{RunID: rep.RunID, Date: d, StepDurations: make(map[string]time.Duration)}
		if err := p.runLocked(ctx, d, inputs[d], out); err != nil {
			rep.Failed[d] = err.Error()
			p.metrics.RecordRun(metrics.ResultError)
			log.Warn().Err(err).Str("date", d.String()).Msg("Backfill date failed, continuing")
			progress.Step(d.String(), false)
			continue
		}
		p.metrics.RecordRun(metrics.ResultSuccess)
		rep.Completed = append(rep.Completed, d)
		progress.Step(d.String(), true)
	}

	rep.Duration = time.Since(start)
	result := metrics.ResultSuccess
	if len(rep.Failed) > 0 {
		result = metrics.ResultError
	}
	timer.Stop(result)

	log.Info().
		Str("from", from.String()).
		Str("to", to.String()).
		Int("completed", len(rep.Completed)).
		Int("failed", len(rep.Failed)).
		Dur("duration", rep.Duration).
		Msg("Backfill finished")
	return rep, nil
}

// prefetch collects every date concurrently, bounded by PrefetchParallel
func (p *Pipeline) prefetch(ctx context.Context, dates []domain.Date) (map[domain.Date]*domain.Input, map[domain.Date]error) {
	var mu sync.Mutex
	inputs := make(map[domain.Date]*domain.Input, len(dates))
	errs := make(map[domain.Date]error)

	limit := p.cfg.Pipeline.PrefetchParallel
	if limit < 1 {
		limit = 1
	}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)

	for _, d := range dates {
		d := d
		eg.Go(func() error {
			in, err := p.collectWithRetry(egCtx, d)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[d] = err
			} else {
				inputs[d] = in
			}
			return nil
		})
	}
	_ = eg.Wait()
	return inputs, errs
}

// collectWithRetry makes up to 1+RetryCount attempts with linear backoff.
// A missing snapshot is final and not retried.
func (p *Pipeline) collectWithRetry(ctx context.Context, d domain.Date) (*domain.Input, error) {
	attempts := p.cfg.Pipeline.RetryCount + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		in, err := p.collector.Collect(ctx, d)
		if err == nil {
			return in, nil
		}
		lastErr = err
		if errors.Is(err, collector.ErrNoSnapshot) || ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			log.Debug().Err(err).Str("date", d.String()).Int("attempt", attempt).Msg("Collect failed, retrying")
			if err := p.sleep(ctx, time.Duration(attempt)*p.cfg.Pipeline.RetryBackoff); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("collect %s after retries: %w", d, lastErr)
}
