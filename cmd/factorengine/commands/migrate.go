package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sieng/factor-engine/internal/store"
	"github.com/sieng/factor-engine/pkg/config"
	"github.com/sieng/factor-engine/pkg/database"
	"github.com/sieng/factor-engine/pkg/logger"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Applies the engine's schema to the configured PostgreSQL database.

All statements are idempotent; running migrate twice is safe.

Example:
  go run ./cmd/factorengine migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := store.New(db).Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	log.Info("Schema migrated")
	fmt.Println("✅ Database schema is up to date")
	return nil
}
