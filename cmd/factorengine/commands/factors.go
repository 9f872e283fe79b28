package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// factorsCmd represents the factors command
var factorsCmd = &cobra.Command{
	Use:   "factors",
	Short: "Compute factor values for a run",
	Long: `Computes momentum, realized volatility, drawdown and liquidity
metrics over the stored price history of the run's active universe.

Example:
  go run ./cmd/factorengine factors --as-of 2024-06-28
  go run ./cmd/factorengine factors --run-id run_20240628_120000_a1b2`,
	RunE: runFactors,
}

var (
	factorsAsOf  string
	factorsRunID string
)

func init() {
	rootCmd.AddCommand(factorsCmd)

	factorsCmd.Flags().StringVar(&factorsAsOf, "as-of", "", "as-of date (YYYY-MM-DD, default: today)")
	factorsCmd.Flags().StringVar(&factorsRunID, "run-id", "", "existing run to continue")
}

func runFactors(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	run, err := app.resolveRun(ctx, "factors", factorsAsOf, factorsRunID)
	if err != nil {
		return err
	}

	if err := app.pipe.Factors(ctx, run); err != nil {
		return fmt.Errorf("compute factors: %w", err)
	}

	fmt.Printf("✅ Factors computed for run %s\n", run.ID)
	return nil
}
