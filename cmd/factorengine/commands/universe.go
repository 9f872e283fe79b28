package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sieng/factor-engine/internal/universe"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Universe membership management",
}

// universeImportCmd represents the universe import command
var universeImportCmd = &cobra.Command{
	Use:   "import [csv-path]",
	Short: "Import membership intervals from CSV",
	Long: `Imports point-in-time universe membership rows. The CSV needs
ticker and start_date columns; end_date (empty for open intervals) and
source are optional.

Example:
  go run ./cmd/factorengine universe import data/ipsa_membership.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runUniverseImport,
}

func init() {
	rootCmd.AddCommand(universeCmd)
	universeCmd.AddCommand(universeImportCmd)
}

func runUniverseImport(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	importer := universe.NewImporter(app.store, app.log)
	count, err := importer.ImportFile(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("import universe: %w", err)
	}

	fmt.Printf("✅ Imported %d membership rows\n", count)
	return nil
}
