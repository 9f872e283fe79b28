package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// portfolioCmd represents the portfolio command
var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Construct the target portfolio for a run",
	Long: `Builds signals for the run and converts the top of the ranking
into liquidity-capped target weights.

Example:
  go run ./cmd/factorengine portfolio --as-of 2024-06-28
  go run ./cmd/factorengine portfolio --run-id run_20240628_120000_a1b2`,
	RunE: runPortfolio,
}

var (
	portfolioAsOf  string
	portfolioRunID string
)

func init() {
	rootCmd.AddCommand(portfolioCmd)

	portfolioCmd.Flags().StringVar(&portfolioAsOf, "as-of", "", "as-of date (YYYY-MM-DD, default: today)")
	portfolioCmd.Flags().StringVar(&portfolioRunID, "run-id", "", "existing run to continue")
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	run, err := app.resolveRun(ctx, "portfolio", portfolioAsOf, portfolioRunID)
	if err != nil {
		return err
	}

	sigs, err := app.pipe.Signals(ctx, run)
	if err != nil {
		return fmt.Errorf("build signals: %w", err)
	}
	positions, err := app.pipe.Portfolio(ctx, run, sigs)
	if err != nil {
		return fmt.Errorf("build portfolio: %w", err)
	}

	fmt.Printf("✅ %d positions for run %s\n\n", len(positions), run.ID)
	for _, pos := range positions {
		fmt.Printf("%-12s weight=%6.2f%% cap=%6.2f%%\n",
			pos.Ticker, pos.Weight*100, pos.LiquidityCap*100)
	}
	return nil
}
