package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rolodex-app/directory-services/internal/events"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DirectoryDB is the PostgreSQL backend for profiles, groups, memberships
// and insights.
type DirectoryDB struct {
	DB     *sql.DB
	Events events.Notifier
	Log    *zerolog.Logger
}

// NewDirectoryDB opens the database behind connStr and checks it is reachable.
func NewDirectoryDB(connStr string, notifier events.Notifier, log *zerolog.Logger) (*DirectoryDB, error) {
	if connStr == "" {
		log.Error().Msg("database connection string is not set")
		return nil, errors.New("database connection string is not set")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open database connection")
		return nil, err
	}

	// Check we are actually connected
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("Database connection failed during ping")
		db.Close()
		return nil, err
	}

	if notifier == nil {
		notifier = events.Discard{}
	}

	return &DirectoryDB{
		DB:     db,
		Events: notifier,
		Log:    log,
	}, nil
}

func (w *DirectoryDB) Close() error {
	if err := w.DB.Close(); err != nil {
		return err
	}
	w.Log.Info().Msg("database connection closed")

	w.Events.Close()
	w.Log.Info().Msg("event publisher closed")
	return nil
}

// Ping reports whether the database is reachable.
func (w *DirectoryDB) Ping(ctx context.Context) error {
	return w.DB.PingContext(ctx)
}

// Migrate applies the embedded goose migrations.
func (w *DirectoryDB) Migrate() error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("error setting migration dialect: %w", err)
	}

	if err := goose.Up(w.DB, "migrations"); err != nil {
		return fmt.Errorf("error running migrations: %w", err)
	}

	w.Log.Info().Msg("Migrations applied successfully")
	return nil
}

// notify sends a change event. Failures are logged, never returned: the row
// is already committed.
func (w *DirectoryDB) notify(entity, action string, id uuid.UUID, owner string) {
	err := w.Events.Notify(events.ChangeEvent{
		Entity: entity,
		Action: action,
		ID:     id,
		Owner:  owner,
		At:     time.Now().UTC(),
	})
	if err != nil {
		w.Log.Warn().Err(err).Str("entity", entity).Str("action", action).
			Str("id", id.String()).Msg("Failed to publish change event")
	}
}

func (w *DirectoryDB) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	if w.DB == nil {
		return 0, fmt.Errorf("database connection is not established")
	}

	res, err := w.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}
	return res.RowsAffected()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
