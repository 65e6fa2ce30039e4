package cmd

import (
	"context"

	"github.com/rolodex-app/directory-services/internal/directory"
	"github.com/rolodex-app/directory-services/internal/events"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var dryRun bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute photo URLs that no longer match their storage keys",
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config and set up logging
		commonSetUp()

		ctx := log.Logger.WithContext(context.Background())

		// Rewrites are published so live lists pick them up
		notifier, err := changeNotifier(events.NewHub())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize event publisher")
		}

		backend, closeBackend, err := openBackend(ctx, notifier)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize directory backend")
		}
		defer closeBackend()

		log.Info().Bool("dry_run", dryRun).Msg("Starting reconciliation process...")

		n, err := directory.ReconcilePhotoURLs(ctx, backend, cdn(), dryRun)
		if err != nil {
			log.Fatal().Err(err).Int("diverged", n).Msg("Reconciliation failed")
		}

		log.Info().Int("diverged", n).Msg("Reconciliation process completed.")
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report diverged photo URLs without rewriting them")
}
