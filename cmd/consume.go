package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rolodex-app/directory-services/internal/authn"
	"github.com/rolodex-app/directory-services/internal/connectivity"
	"github.com/rolodex-app/directory-services/internal/directory"
	"github.com/rolodex-app/directory-services/internal/events"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var owner string

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Follow the change feed and keep one owner's profile list up to date",
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config and set up logging
		commonSetUp()

		if owner == "" {
			log.Fatal().Msg("--owner is required")
		}
		if appCfg.Pulsar.URL == "" {
			log.Warn().Msg("No Pulsar URL configured, only reconnects will refresh the list")
		}

		ctx, stop := signal.NotifyContext(log.Logger.WithContext(context.Background()), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hub := events.NewHub()

		// Read only: nothing is published from here
		backend, closeBackend, err := openBackend(ctx, events.Discard{})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize directory backend")
		}
		defer closeBackend()

		profiles := directory.NewProfileService(backend, nil, authn.StaticSession{UserID: owner}, cdn())
		profiles.ListLimit = appCfg.Directory.ListLimit

		cache := directory.NewProfileListCache(profiles, hub)
		cache.OnChange = func(state directory.CacheState) {
			if state.Err != nil {
				log.Error().Err(state.Err).Str("status", string(state.Status)).Msg("Profile list failed")
				return
			}
			log.Info().Str("status", string(state.Status)).Int("profiles", len(state.Profiles)).
				Bool("loading", state.Loading).Msg("Profile list changed")
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return followChanges(gctx, hub, appCfg.Pulsar.Subscription) })
		g.Go(func() error {
			return connectivity.NewMonitor(backend, hub, appCfg.Connectivity.Interval).Run(gctx)
		})
		g.Go(func() error { return cache.Run(gctx) })

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("Consumer stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(consumeCmd)
	consumeCmd.Flags().StringVar(&owner, "owner", "", "owner whose profile list is maintained")
}
