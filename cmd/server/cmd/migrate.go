package cmd

import (
	"fmt"

	"github.com/Togather-Foundation/serendipity/internal/config"
	"github.com/Togather-Foundation/serendipity/internal/storage/postgres"
	"github.com/spf13/cobra"
)

var migrateDownSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the store schema",
	Long: `Apply or roll back schema changes for the configured store.

For postgres this runs the embedded SQL migrations. For mongo, "up" creates
the collection indexes (including the unique email index); there is nothing
to roll back. The memory store has no schema.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		logger := config.NewLogger(cfg.Logging, cfg.Environment)

		store, err := openStore(cmd.Context(), cfg.Store, logger)
		if err != nil {
			return fmt.Errorf("store connection failed: %w", err)
		}
		defer func() { _ = store.Close(cmd.Context()) }()

		if err := store.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s store is up to date\n", cfg.Store.Driver)
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back postgres migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if cfg.Store.Driver != config.StorePostgres {
			return fmt.Errorf("migrate down is only supported for STORE_DRIVER=%s", config.StorePostgres)
		}
		if err := postgres.MigrateDown(cfg.Store.DatabaseURL, migrateDownSteps); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", migrateDownSteps)
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied postgres schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if cfg.Store.Driver != config.StorePostgres {
			return fmt.Errorf("migrate version is only supported for STORE_DRIVER=%s", config.StorePostgres)
		}
		version, dirty, err := postgres.MigrationVersion(cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version: %d\ndirty:   %t\n", version, dirty)
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}
