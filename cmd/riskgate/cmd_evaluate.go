package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sawpanic/riskgate/internal/evaluation"
)

func init() {
	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Grade stored decisions against realized prices",
		Long: `Grades every stored decision at each horizon using only prices on or before
--as-of. Rows whose target date lies after --as-of stay pending.`,
		RunE: runEvaluate,
	}
	evaluateCmd.Flags().String("as-of", "", "Evaluation date (YYYY-MM-DD), defaults to today UTC")
	evaluateCmd.Flags().Bool("json", false, "Print the full report as JSON")

	driftCmd := &cobra.Command{
		Use:   "drift",
		Short: "Show the rolling-accuracy drift signal",
		RunE:  runDrift,
	}
	driftCmd.Flags().String("as-of", "", "Evaluation date (YYYY-MM-DD), defaults to today UTC")

	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(driftCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	asOf, err := dateFlag(cmd.Flags(), "as-of")
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	rep := evaluation.NewEngine(a.cfg.Evaluation).Evaluate(entries, a.seed, asOf)
	if asJSON {
		return writeJSON(rep)
	}

	fmt.Printf("Evaluation as of %s\n", rep.AsOf)
	for _, s := range rep.Summaries {
		acc := "n/a"
		if s.Accuracy != nil {
			acc = fmt.Sprintf("%.1f%%", *s.Accuracy*100)
		}
		fmt.Printf("  %2dD  total=%d matured=%d hits=%d accuracy=%s\n", s.Horizon, s.Total, s.Matured, s.Hits, acc)
	}
	for _, r := range rep.Rows {
		ret := "      "
		if r.ReturnPct != nil {
			ret = fmt.Sprintf("%+6.2f", *r.ReturnPct)
		}
		fmt.Printf("  %s %2dD %s %-5s %s%% %s\n", r.Date, r.Horizon, r.State, r.Expectation, ret, r.Verdict)
	}
	return nil
}

func runDrift(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	asOf, err := dateFlag(cmd.Flags(), "as-of")
	if err != nil {
		return err
	}

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	sig := evaluation.NewEngine(a.cfg.Evaluation).DriftAsOf(entries, a.seed, asOf, a.cfg.Drift)
	return writeJSON(sig)
}
