package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Walk-forward backtest over month-end rebalances",
	Long: `Replays the strategy between two dates: signals at each month-end
close, entry on the next trading day, exit at the following month end,
with transaction costs and slippage applied per period.

Example:
  go run ./cmd/factorengine backtest --from 2022-01-01 --to 2024-06-28
  go run ./cmd/factorengine backtest --from 2022-01-01 --run-id run_20240628_120000_a1b2`,
	RunE: runBacktest,
}

var (
	backtestFrom  string
	backtestTo    string
	backtestRunID string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "start date (YYYY-MM-DD, required)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "end date (YYYY-MM-DD, default: today)")
	backtestCmd.Flags().StringVar(&backtestRunID, "run-id", "", "existing run to continue")

	backtestCmd.MarkFlagRequired("from")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	run, err := app.resolveRun(ctx, "backtest", backtestTo, backtestRunID)
	if err != nil {
		return err
	}

	start, err := parseDate(backtestFrom, run.AsOfDate.AddDate(-1, 0, 0))
	if err != nil {
		return err
	}
	end, err := parseDate(backtestTo, run.AsOfDate)
	if err != nil {
		return err
	}

	result, err := app.pipe.Backtest(ctx, run, start, end)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	fmt.Printf("✅ Backtest complete for run %s\n\n", run.ID)
	fmt.Printf("Period:        %s ~ %s (%d periods)\n",
		result.StartDate.Format("2006-01-02"), result.EndDate.Format("2006-01-02"), result.Periods)
	fmt.Printf("Final Capital: %.4f\n", result.FinalCapital)
	fmt.Printf("CAGR:          %+.2f%%\n", result.CAGR*100)
	fmt.Printf("Volatility:    %.2f%%\n", result.Volatility*100)
	fmt.Printf("Max Drawdown:  %.2f%%\n", result.MaxDrawdown*100)
	return nil
}
