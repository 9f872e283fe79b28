package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push a run's artifacts to the document workspace",
	Long: `Pushes the run page, its signals, portfolio positions, backtest
metrics and a run summary page to the configured workspace databases.

Example:
  go run ./cmd/factorengine sync --run-id run_20240628_120000_a1b2`,
	RunE: runSync,
}

var syncRunID string

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncRunID, "run-id", "", "run to push (required)")
	syncCmd.MarkFlagRequired("run-id")
}

func runSync(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if app.ws == nil {
		return fmt.Errorf("workspace sync not configured: set WORKSPACE_TOKEN")
	}

	ctx := cmd.Context()
	run, err := app.resolveRun(ctx, "sync", "", syncRunID)
	if err != nil {
		return err
	}

	if err := app.pipe.Sync(ctx, run); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	fmt.Printf("✅ Workspace sync complete for run %s\n", run.ID)
	return nil
}
