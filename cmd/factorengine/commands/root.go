package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configDir string
	verbose   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "factorengine",
	Short: "Factor Engine - small-cap equity research pipeline",
	Long: `Factor Engine CLI

Monthly factor research pipeline for Chilean small-caps:
price ingestion, factor computation, composite signals, liquidity-capped
portfolio construction and walk-forward backtesting, with optional sync
to the team's document workspace.

Usage:
  go run ./cmd/factorengine [command]

Examples:
  go run ./cmd/factorengine migrate
  go run ./cmd/factorengine run-all --as-of 2024-06-28
  go run ./cmd/factorengine backtest --from 2022-01-01 --to 2024-06-28
  go run ./cmd/factorengine api`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "configs", "directory with provider/strategy/universe/workspace YAML")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
