package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rolodex-app/directory-services/db"
	"github.com/rolodex-app/directory-services/internal/appconfig"
	awsclient "github.com/rolodex-app/directory-services/internal/aws"
	"github.com/rolodex-app/directory-services/internal/directory"
	"github.com/rolodex-app/directory-services/internal/events"
	"github.com/rolodex-app/directory-services/internal/memstore"
	"github.com/rolodex-app/directory-services/internal/photos"
	"github.com/rs/zerolog/log"
)

var appCfg *appconfig.Config

// commonSetUp sets logging, loads the dotenv file and the config.
func commonSetUp() {
	setLogging(logLevel)

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("file", envFile).Msg("Failed to load env file")
	}

	var err error
	appCfg, err = appconfig.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
}

// databaseURL resolves the connection string, preferring Secrets Manager
// when a secret id is configured.
func databaseURL(ctx context.Context) (string, error) {
	if appCfg.Database.SecretID == "" {
		return appCfg.Database.Source, nil
	}

	awsCfg, err := awsclient.LoadAWSConfig(ctx, appCfg.AWS.Region)
	if err != nil {
		return "", err
	}
	return awsclient.ResolveSecret(ctx, awsclient.NewSecretsManagerClient(awsCfg), appCfg.Database.SecretID, "")
}

// openPostgres opens the database, through the SSH tunnel if one is
// configured. The returned func closes both.
func openPostgres(ctx context.Context, notifier events.Notifier) (*db.DirectoryDB, func(), error) {
	dsn, err := databaseURL(ctx)
	if err != nil {
		return nil, nil, err
	}

	closeTunnel := func() {}
	if t := appCfg.Database.Tunnel; t != nil {
		tunnel, err := StartSSHTunnel(*t, &log.Logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start SSH tunnel: %w", err)
		}
		closeTunnel = func() { tunnel.Close() }
	}

	directoryDB, err := db.NewDirectoryDB(dsn, notifier, &log.Logger)
	if err != nil {
		closeTunnel()
		return nil, nil, err
	}

	return directoryDB, func() {
		directoryDB.Close()
		closeTunnel()
	}, nil
}

// openBackend opens the configured directory backend.
func openBackend(ctx context.Context, notifier events.Notifier) (directory.Backend, func(), error) {
	switch appCfg.Database.Driver {
	case "memory":
		log.Warn().Msg("Using the in-memory backend, data is lost on exit")
		store := memstore.New(notifier)
		return store, func() { store.Close() }, nil
	case "postgres":
		return openPostgres(ctx, notifier)
	}
	return nil, nil, fmt.Errorf("unknown database driver %q", appCfg.Database.Driver)
}

// changeNotifier publishes change events to Pulsar when it is configured and
// straight onto the hub otherwise.
func changeNotifier(hub *events.Hub) (events.Notifier, error) {
	if appCfg.Pulsar.URL == "" {
		return hub, nil
	}
	return events.NewEventPublisher(appCfg.Pulsar.URL, appCfg.Pulsar.Topic)
}

// followChanges relays the Pulsar change feed onto the hub until ctx is done.
// Without Pulsar the hub is fed directly and there is nothing to follow.
func followChanges(ctx context.Context, hub *events.Hub, subscription string) error {
	if appCfg.Pulsar.URL == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	consumer, err := events.NewEventConsumer(appCfg.Pulsar.URL, appCfg.Pulsar.Topic, subscription)
	if err != nil {
		return err
	}
	defer consumer.Close()

	return events.Relay(ctx, consumer, hub, &log.Logger)
}

func cdn() photos.CDN {
	return photos.CDN{Base: appCfg.AWS.CDNBase}
}
