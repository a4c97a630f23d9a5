package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/sawpanic/riskgate/internal/domain"
)

func init() {
	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Run the pipeline over a date range",
		Long: `Prefetches inputs for every date in [from, to] with bounded concurrency and
retries, then runs each date in order under one lock. Failed dates are reported
and do not stop the batch.`,
		RunE: runBackfill,
	}
	backfillCmd.Flags().String("from", "", "First date (YYYY-MM-DD)")
	backfillCmd.Flags().String("to", "", "Last date (YYYY-MM-DD), defaults to today UTC")
	backfillCmd.Flags().Bool("json", false, "Print the batch report as JSON")
	_ = backfillCmd.MarkFlagRequired("from")

	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	from, err := dateFlag(cmd.Flags(), "from")
	if err != nil {
		return err
	}
	to, err := dateFlag(cmd.Flags(), "to")
	if err != nil {
		return err
	}
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

	rep, err := p.Backfill(ctx, from, to)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(rep)
	}
	if rep.Skipped {
		fmt.Println("Skipped: another run holds the lock")
		return nil
	}

	fmt.Printf("Backfill %s..%s: %d completed, %d failed in %s\n",
		rep.From, rep.To, len(rep.Completed), len(rep.Failed), rep.Duration.Round(time.Millisecond))
	failed := make([]domain.Date, 0, len(rep.Failed))
	for d := range rep.Failed {
		failed = append(failed, d)
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	for _, d := range failed {
		fmt.Printf("  %s: %s\n", d, rep.Failed[d])
	}
	return nil
}
