package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/advisorhub/internal/app"
	"github.com/turtacn/advisorhub/internal/infrastructure/persistence/postgres"
)

// migrateCmd applies the GORM schema to the configured database.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := cliLogger()
		cfg, _, err := app.LoadConfig(ctx, configFile, log)
		if err != nil {
			return err
		}
		// NewDB would migrate on its own; keep the run explicit.
		cfg.Database.AutoMigrate = false
		db, err := app.OpenDatabase(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer postgres.Close(db)

		if err := postgres.AutoMigrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%d tables)\n", len(postgres.AllModels()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

//Personal.AI order the ending
