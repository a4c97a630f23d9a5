package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/riskgate/internal/collector"
	"github.com/sawpanic/riskgate/internal/config"
	"github.com/sawpanic/riskgate/internal/evaluation"
	"github.com/sawpanic/riskgate/internal/infrastructure/db"
	"github.com/sawpanic/riskgate/internal/lock"
	"github.com/sawpanic/riskgate/internal/metrics"
	"github.com/sawpanic/riskgate/internal/persistence"
	"github.com/sawpanic/riskgate/internal/persistence/file"
	"github.com/sawpanic/riskgate/internal/pipeline"
)

// app holds the adapters every command shares
type app struct {
	cfg     config.Config
	repo    persistence.HistoryRepo
	health  persistence.RepositoryHealth
	seed    evaluation.PriceSeed
	metrics *metrics.Registry
	closers []func() error
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel == "" {
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	}

	a := &app{cfg: cfg, metrics: metrics.NewRegistry()}
	switch cfg.History.Backend {
	case "", "file":
		repo := file.NewHistoryRepo(cfg.History.Path)
		a.repo, a.health = repo, repo
	case "postgres":
		mgr, err := db.NewManager(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := mgr.Migrate(ctx); err != nil {
			mgr.Close()
			return nil, err
		}
		a.repo, a.health = mgr.History(), mgr.Health()
		a.closers = append(a.closers, mgr.Close)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}

	if a.seed, err = collector.LoadPriceSeed(cfg.Evaluation.PriceSeedPath); err != nil {
		a.Close()
		return nil, err
	}

	log.Debug().
		Str("history", cfg.History.Backend).
		Str("lock", cfg.Lock.Backend).
		Str("collector", cfg.Collector.Kind).
		Int("seed_prices", len(a.seed)).
		Msg("Adapters ready")
	return a, nil
}

// pipeline wires the collector and run lock on top of the shared adapters
func (a *app) pipeline() (*pipeline.Pipeline, error) {
	col, err := collector.New(a.cfg.Collector)
	if err != nil {
		return nil, err
	}
	locker, err := lock.New(a.cfg.Lock)
	if err != nil {
		return nil, err
	}
	return pipeline.New(&a.cfg, pipeline.Deps{
		Collector: col,
		Repo:      a.repo,
		Locker:    locker,
		Seed:      a.seed,
		Metrics:   a.metrics,
	}), nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("Close failed")
		}
	}
}
