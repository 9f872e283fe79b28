package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Build composite signals for a run",
	Long: `Combines the run's factor values into weighted composite scores,
applies the liquidity filter and prints the top of the ranking.

Signals are cached per run and as-of date; re-running returns the
stored batch.

Example:
  go run ./cmd/factorengine signals --as-of 2024-06-28
  go run ./cmd/factorengine signals --run-id run_20240628_120000_a1b2`,
	RunE: runSignals,
}

var (
	signalsAsOf  string
	signalsRunID string
)

func init() {
	rootCmd.AddCommand(signalsCmd)

	signalsCmd.Flags().StringVar(&signalsAsOf, "as-of", "", "as-of date (YYYY-MM-DD, default: today)")
	signalsCmd.Flags().StringVar(&signalsRunID, "run-id", "", "existing run to continue")
}

func runSignals(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	run, err := app.resolveRun(ctx, "signals", signalsAsOf, signalsRunID)
	if err != nil {
		return err
	}

	sigs, err := app.pipe.Signals(ctx, run)
	if err != nil {
		return fmt.Errorf("build signals: %w", err)
	}

	fmt.Printf("✅ %d signals for run %s\n\n", len(sigs), run.ID)
	for i, sig := range sigs {
		if i >= 10 {
			break
		}
		fmt.Printf("%-12s score=%.3f liquidity=%.0f\n", sig.Ticker, sig.Score, sig.Liquidity)
	}
	return nil
}
