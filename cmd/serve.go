package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rolodex-app/directory-services/api/handlers"
	"github.com/rolodex-app/directory-services/api/middleware"
	"github.com/rolodex-app/directory-services/api/services"
	"github.com/rolodex-app/directory-services/internal/authn"
	awsclient "github.com/rolodex-app/directory-services/internal/aws"
	"github.com/rolodex-app/directory-services/internal/connectivity"
	"github.com/rolodex-app/directory-services/internal/directory"
	"github.com/rolodex-app/directory-services/internal/events"
	"github.com/rolodex-app/directory-services/internal/photos"
	"github.com/rolodex-app/directory-services/internal/realtime"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server for handling API requests",
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config and set up logging
		commonSetUp()

		ctx, stop := signal.NotifyContext(log.Logger.WithContext(context.Background()), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hub := events.NewHub()

		notifier, err := changeNotifier(hub)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize event publisher")
		}

		backend, closeBackend, err := openBackend(ctx, notifier)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize directory backend")
		}
		defer closeBackend()

		// AWS clients
		log.Info().Str("region", appCfg.AWS.Region).Msg("Loading AWS config")
		awsCfg, err := awsclient.LoadAWSConfig(ctx, appCfg.AWS.Region)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load AWS config")
		}
		storage := photos.NewS3Storage(awsclient.NewS3Client(awsCfg), appCfg.AWS.S3.Bucket)
		uploader := photos.NewUploader(storage, authn.ContextSession{}, cdn())
		stsClient := awsclient.NewSTSClient(awsCfg)

		service := &services.Service{
			Config:  appCfg,
			Backend: backend,
			Photos:  uploader,
			CDN:     cdn(),
			TempDir: os.TempDir(),
		}

		// Every socket subscriber gets its own cache scoped to the token's user
		registry := realtime.NewRegistry(func(claims authn.Claims) *directory.ProfileListCache {
			session := authn.StaticSession{UserID: claims.Subject, Identity: claims.IdentityID}
			profiles := directory.NewProfileService(backend, uploader, session, cdn())
			profiles.Compensate = appCfg.Directory.Compensate
			profiles.ListLimit = appCfg.Directory.ListLimit
			return directory.NewProfileListCache(profiles, hub)
		})
		defer registry.Close()

		sio := realtime.NewServer(ctx, registry)

		// Create routes
		r := mux.NewRouter()
		r.HandleFunc("/health", handlers.Health(backend)).Methods(http.MethodGet)
		r.PathPrefix("/socket.io/").Handler(sio)

		// Register the routes
		api := r.PathPrefix(appCfg.BasePath).Subrouter()

		// Apply the middleware to the API routes
		api.Use(middleware.WithLogger)
		api.Use(middleware.JWTMiddleware)

		// Profile routes
		api.HandleFunc("/profiles", handlers.ListProfiles(service)).Methods(http.MethodGet)
		api.HandleFunc("/profiles", handlers.CreateProfile(service)).Methods(http.MethodPost)
		api.HandleFunc("/profiles/{profile-id}", handlers.GetProfile(service)).Methods(http.MethodGet)
		api.HandleFunc("/profiles/{profile-id}", handlers.UpdateProfile(service)).Methods(http.MethodPut)
		api.HandleFunc("/profiles/{profile-id}", handlers.DeleteProfile(service)).Methods(http.MethodDelete)

		// Insight routes
		api.HandleFunc("/profiles/{profile-id}/insights", handlers.ListInsights(service)).Methods(http.MethodGet)
		api.HandleFunc("/profiles/{profile-id}/insights", handlers.CreateInsight(service)).Methods(http.MethodPost)
		api.HandleFunc("/profiles/{profile-id}/insights/{insight-id}", handlers.DeleteInsight(service)).Methods(http.MethodDelete)

		// Group routes
		api.HandleFunc("/groups", handlers.ListGroups(service)).Methods(http.MethodGet)
		api.HandleFunc("/groups", handlers.CreateGroup(service)).Methods(http.MethodPost)
		api.HandleFunc("/groups/{group-id}", handlers.PatchGroup(service)).Methods(http.MethodPatch)
		api.HandleFunc("/groups/{group-id}", handlers.DeleteGroup(service)).Methods(http.MethodDelete)

		// Photo routes
		api.HandleFunc("/photos/url", handlers.GetPhotoURL(service)).Methods(http.MethodGet)
		api.HandleFunc("/photos/credentials", handlers.RequestPhotoCredentials(appCfg.AWS.S3.RoleArn, appCfg.AWS.S3.Bucket, stsClient)).Methods(http.MethodPost)

		handler := cors.New(cors.Options{
			AllowedOrigins:   appCfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler(r)

		srv := &http.Server{
			Addr:    fmt.Sprintf("%s:%d", host, port),
			Handler: handler,
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			if err := sio.Serve(); err != nil && gctx.Err() == nil {
				return fmt.Errorf("socket.io server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			err := followChanges(gctx, hub, appCfg.Pulsar.Subscription)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})

		g.Go(func() error {
			monitor := connectivity.NewMonitor(backend, hub, appCfg.Connectivity.Interval)
			if err := monitor.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			log.Info().Msg(fmt.Sprintf("Server started at %s:%d", host, port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("could not start server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			log.Info().Msg("Shutting down server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			sio.Close()
			return srv.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil {
			log.Error().Err(err).Msg("Server stopped with error")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&host, "host", "0.0.0.0", "host to run the server on")
	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run the server on")

}
