package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sawpanic/riskgate/internal/domain"
	"github.com/sawpanic/riskgate/internal/gates"
)

func init() {
	gatesCmd := &cobra.Command{
		Use:   "gates",
		Short: "Dump the gate results stored for a date",
		Long: `Prints every gate status and note recorded with the decision for --date.
With --recompute the gates are evaluated again over the stored input using the
current config, which shows the effect of threshold changes.`,
		RunE: runGates,
	}
	gatesCmd.Flags().String("date", "", "Decision date (YYYY-MM-DD), defaults to today UTC")
	gatesCmd.Flags().Bool("recompute", false, "Re-evaluate gates over the stored input")
	gatesCmd.Flags().Bool("json", false, "Print gate results as JSON")

	rootCmd.AddCommand(gatesCmd)
}

func runGates(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	date, err := dateFlag(cmd.Flags(), "date")
	if err != nil {
		return err
	}
	recompute, _ := cmd.Flags().GetBool("recompute")
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := a.repo.Get(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if entry == nil {
		return fmt.Errorf("no history entry for %s", date)
	}

	var list []domain.GateResult
	switch {
	case recompute:
		if entry.Input == nil {
			return fmt.Errorf("entry for %s has no input", date)
		}
		list = gates.NewEngine(a.cfg.Gates).Evaluate(entry.Input).List()
	case entry.Output != nil:
		list = entry.Output.Gates
	default:
		return fmt.Errorf("entry for %s has no decision, use --recompute", date)
	}

	if asJSON {
		return writeJSON(list)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GATE\tSTATUS\tNOTE")
	for _, g := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", g.Name, g.Status, g.Note)
	}
	return tw.Flush()
}
