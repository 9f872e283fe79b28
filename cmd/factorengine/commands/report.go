package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sieng/factor-engine/internal/reports"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Print a run summary as JSON",
	Long: `Collects the run's metadata, positions and backtest metrics into a
single JSON document.

Example:
  go run ./cmd/factorengine report run_20240628_120000_a1b2`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	summary, err := reports.BuildRunSummary(cmd.Context(), app.store, args[0])
	if err != nil {
		return fmt.Errorf("build run summary: %w", err)
	}

	encoded, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
