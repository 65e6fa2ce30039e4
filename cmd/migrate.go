package cmd

import (
	"context"

	"github.com/rolodex-app/directory-services/internal/events"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "init-db-migrate",
	Short: "Initialize tables and run database migrations",
	Long:  `This job ensures tables exist and then runs goose migrations.`,
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config and set up logging
		commonSetUp()

		if appCfg.Database.Driver != "postgres" {
			log.Info().Str("driver", appCfg.Database.Driver).Msg("Nothing to migrate")
			return
		}

		directoryDB, closeDB, err := openPostgres(context.Background(), events.Discard{})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize DirectoryDB")
		}
		defer closeDB()

		// Run the migrations
		log.Info().Msgf("Running migrations...")
		if err := directoryDB.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}

		log.Info().Msg("Migrations complete")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
