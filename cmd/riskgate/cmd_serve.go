package main

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/sawpanic/riskgate/internal/interfaces/http"
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only HTTP monitor",
		Long:  "Serves /health, /metrics, /decision/latest, /decision/{date}, /explain/{date}, /evaluation and /drift",
		RunE:  runServe,
	}
	serveCmd.Flags().String("host", "", "Listen host, overrides config")
	serveCmd.Flags().Int("port", 0, "Listen port, overrides config")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg.HTTP
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Port = port
	}

	// Gauges start from the newest stored decision
	if entries, err := a.repo.Load(ctx); err == nil {
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].Output != nil {
				a.metrics.RecordDecision(entries[i].Output)
				break
			}
		}
	}

	handlers := httpapi.NewHandlers(httpapi.Deps{
		Repo:    a.repo,
		Health:  a.health,
		Metrics: a.metrics,
		Seed:    a.seed,
		Config:  &a.cfg,
		Version: version,
	})
	srv := httpapi.NewServer(cfg, handlers)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	log.Info().Msg("HTTP monitor stopped")
	return nil
}
