package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/overrides"
)

// overridesCmd represents the overrides command
var overridesCmd = &cobra.Command{
	Use:   "overrides",
	Short: "Workspace parameter overrides",
}

// overridesApplyCmd represents the overrides apply command
var overridesApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Pull override proposals and apply the allow-listed ones",
	Long: `Pulls parameter override proposals from the workspace overrides
database. Every proposal is audited; a proposal is applied only when
--allow-overrides is set, the proposal is enabled, and its field is on
the configured allow-list. Accepted values are written to the overrides
YAML merged into the strategy config on the next load.

Example:
  go run ./cmd/factorengine overrides apply
  go run ./cmd/factorengine overrides apply --allow-overrides`,
	RunE: runOverridesApply,
}

var (
	overridesAllow     bool
	overridesStorePath string
)

func init() {
	rootCmd.AddCommand(overridesCmd)
	overridesCmd.AddCommand(overridesApplyCmd)

	overridesApplyCmd.Flags().BoolVar(&overridesAllow, "allow-overrides", false, "actually apply allow-listed proposals")
	overridesApplyCmd.Flags().StringVar(&overridesStorePath, "store-path", "", "overrides YAML path (default: configs/overrides_applied.yml)")
}

func runOverridesApply(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	return applyWorkspaceOverrides(cmd.Context(), app, overridesAllow, overridesStorePath)
}

// applyWorkspaceOverrides pulls proposals under a fresh audit run and
// applies them through the overrides service. Shared with run-all.
func applyWorkspaceOverrides(ctx context.Context, app *app, allow bool, storePath string) error {
	if app.ws == nil {
		return fmt.Errorf("workspace sync not configured: set WORKSPACE_TOKEN")
	}

	proposals, err := app.ws.PullOverrides(ctx)
	if err != nil {
		return fmt.Errorf("pull overrides: %w", err)
	}

	run, err := app.resolveRun(ctx, "overrides", "", "")
	if err != nil {
		return err
	}
	if err := app.store.Runs().UpdateStage(ctx, run.ID, contracts.StageOverrides); err != nil {
		return err
	}

	var fileStore *overrides.FileStore
	if storePath != "" {
		fileStore = overrides.NewFileStore(storePath)
	}
	service := overrides.NewService(app.store, app.bundle.Workspace.Overrides, fileStore, app.log)
	result, err := service.Apply(ctx, run, proposals, allow)
	if err != nil {
		return fmt.Errorf("apply overrides: %w", err)
	}
	if err := app.store.Runs().UpdateStage(ctx, run.ID, contracts.CompletedStage(contracts.StageOverrides)); err != nil {
		return err
	}

	fmt.Printf("✅ Overrides processed: %d applied, %d skipped of %d (allow=%v)\n",
		result.Applied, len(result.Skipped), result.Total, result.AllowFlag)
	for _, field := range result.Skipped {
		fmt.Printf("  skipped: %s\n", field)
	}
	return nil
}
