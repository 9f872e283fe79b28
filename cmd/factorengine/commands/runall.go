package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sieng/factor-engine/internal/pipeline"
)

// runAllCmd represents the run-all command
var runAllCmd = &cobra.Command{
	Use:   "run-all",
	Short: "Execute the full pipeline in one run",
	Long: `Runs ingest, factors, signals and portfolio construction for a
fresh run, optionally preceded by a workspace overrides pull and
followed by a walk-forward backtest and workspace sync.

Example:
  go run ./cmd/factorengine run-all --as-of 2024-06-28
  go run ./cmd/factorengine run-all --as-of 2024-06-28 --backtest --sync
  go run ./cmd/factorengine run-all --apply-overrides`,
	RunE: runRunAll,
}

var (
	runAllAsOf           string
	runAllStart          string
	runAllBacktest       bool
	runAllSync           bool
	runAllApplyOverrides bool
)

func init() {
	rootCmd.AddCommand(runAllCmd)

	runAllCmd.Flags().StringVar(&runAllAsOf, "as-of", "", "as-of date (YYYY-MM-DD, default: today)")
	runAllCmd.Flags().StringVar(&runAllStart, "start", "", "history start (default: as-of minus one year)")
	runAllCmd.Flags().BoolVar(&runAllBacktest, "backtest", false, "run the walk-forward backtest as well")
	runAllCmd.Flags().BoolVar(&runAllSync, "sync", false, "push run artifacts to the workspace")
	runAllCmd.Flags().BoolVar(&runAllApplyOverrides, "apply-overrides", false, "pull and apply workspace overrides first")
}

func runRunAll(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	// Overrides change the YAML the bundle is loaded from, so applying
	// them means reloading the whole app before the run.
	if runAllApplyOverrides {
		if err := applyWorkspaceOverrides(ctx, app, true, ""); err != nil {
			app.Close()
			return err
		}
		app.Close()
		app, err = newApp()
		if err != nil {
			return err
		}
	}
	defer app.Close()

	asOf, err := parseDate(runAllAsOf, time.Now().UTC())
	if err != nil {
		return err
	}
	start, err := parseDate(runAllStart, asOf.AddDate(-1, 0, 0))
	if err != nil {
		return err
	}

	run, err := app.pipe.RunAll(ctx, pipeline.Options{
		AsOf:     asOf,
		Start:    start,
		End:      asOf,
		Backtest: runAllBacktest,
		Sync:     runAllSync,
	})
	if err != nil {
		if run != nil {
			return fmt.Errorf("run %s failed at stage %s: %w", run.ID, run.Stage, err)
		}
		return err
	}

	fmt.Printf("✅ Pipeline complete for run %s (as of %s)\n", run.ID, asOf.Format("2006-01-02"))

	positions, err := app.store.Portfolios().GetByRun(ctx, run.ID)
	if err != nil {
		return err
	}
	for _, pos := range positions {
		fmt.Printf("%-12s weight=%6.2f%%\n", pos.Ticker, pos.Weight*100)
	}
	return nil
}
