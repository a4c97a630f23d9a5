package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sawpanic/riskgate/internal/collector"
	"github.com/sawpanic/riskgate/internal/domain"
)

func init() {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline for one date",
		Long: `Collects the input for a date, applies the stale gate and history backfill,
evaluates every gate and records the decision. A held run lock skips the run.`,
		RunE: runRun,
	}
	runCmd.Flags().String("date", "", "Run date (YYYY-MM-DD), defaults to today UTC")
	runCmd.Flags().String("input", "", "Read the raw input snapshot from this file instead of the collector")
	runCmd.Flags().Bool("json", false, "Print the decision as JSON")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	date, err := dateFlag(cmd.Flags(), "date")
	if err != nil {
		return err
	}
	inputPath, _ := cmd.Flags().GetString("input")
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	p, err := a.pipeline()
	if err != nil {
		return err
	}

	if inputPath != "" {
		raw, err := collector.NewFileCollector("").LoadSnapshot(inputPath, date)
		if err != nil {
			return err
		}
		res, err := p.RunInput(ctx, date, raw)
		if err != nil {
			return err
		}
		return printOutcome(res.Skipped, res.Decision, asJSON)
	}

	res, err := p.Run(ctx, date)
	if err != nil {
		return err
	}
	return printOutcome(res.Skipped, res.Decision, asJSON)
}

func printOutcome(skipped bool, d *domain.Decision, asJSON bool) error {
	if skipped {
		fmt.Println("Skipped: another run holds the lock")
		return nil
	}
	if asJSON {
		return writeJSON(d)
	}
	fmt.Printf("%s  state=%s beta=%.3f (raw %.3f cap %.2f) confidence=%.2f hedge=%t drift=%s\n",
		d.Date, d.State, d.Beta, d.BetaRaw, d.BetaCap, d.Confidence, d.Hedge, d.ModelRisk.Level)
	for i, r := range d.ReasonsTop3 {
		fmt.Printf("  %d. %s\n", i+1, r)
	}
	for _, n := range d.RiskNotes {
		fmt.Printf("  ! %s\n", n)
	}
	return nil
}

func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// dateFlag parses a YYYY-MM-DD flag, defaulting to today UTC
func dateFlag(flags *pflag.FlagSet, name string) (domain.Date, error) {
	raw, _ := flags.GetString(name)
	if raw == "" {
		return domain.DateOf(time.Now()), nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return "", fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}
