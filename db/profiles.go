package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rolodex-app/directory-services/internal/events"
	"github.com/rolodex-app/directory-services/models"
)

const profileSelect = `SELECT id, first_name, last_name, description, bio, photo_url, photo_key,
	owner, deleted, created_at, updated_at FROM profiles`

func scanProfile(row interface{ Scan(...interface{}) error }) (models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Description, &p.Bio, &p.PhotoURL,
		&p.PhotoKey, &p.Owner, &p.Deleted, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreateProfile inserts a profile, assigning its id and timestamps.
func (w *DirectoryDB) CreateProfile(ctx context.Context, p models.Profile) (*models.Profile, error) {
	p.ID = uuid.New()
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt

	_, err := w.exec(ctx, `
		INSERT INTO profiles (id, first_name, last_name, description, bio, photo_url, photo_key,
			owner, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.FirstName, p.LastName, p.Description, p.Bio, p.PhotoURL, p.PhotoKey,
		p.Owner, p.Deleted, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error inserting profile: %w", err)
	}

	w.notify(events.EntityProfile, events.ActionCreate, p.ID, p.Owner)
	return &p, nil
}

// GetProfile returns nil, nil when the profile does not exist.
func (w *DirectoryDB) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := scanProfile(w.DB.QueryRowContext(ctx, profileSelect+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving profile: %w", err)
	}
	return &p, nil
}

// UpdateProfile writes the full mutable field set of p.
func (w *DirectoryDB) UpdateProfile(ctx context.Context, p models.Profile) (*models.Profile, error) {
	p.UpdatedAt = now()

	n, err := w.exec(ctx, `
		UPDATE profiles SET first_name = $2, last_name = $3, description = $4, bio = $5,
			photo_url = $6, photo_key = $7, deleted = $8, updated_at = $9
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.Description, p.Bio, p.PhotoURL, p.PhotoKey, p.Deleted, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error updating profile: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("profile %s: %w", p.ID, models.ErrNotFound)
	}

	w.notify(events.EntityProfile, events.ActionUpdate, p.ID, p.Owner)
	return &p, nil
}

func (w *DirectoryDB) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	var owner string
	err := w.DB.QueryRowContext(ctx, `DELETE FROM profiles WHERE id = $1 RETURNING owner`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("profile %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("error deleting profile: %w", err)
	}

	w.notify(events.EntityProfile, events.ActionDelete, id, owner)
	return nil
}

func (w *DirectoryDB) ListProfiles(ctx context.Context, opts models.ListOptions) ([]models.Profile, string, error) {
	where, args, err := profileColumns.where(opts.Filter)
	if err != nil {
		return nil, "", err
	}
	window, args, offset, limit, err := page(opts, args)
	if err != nil {
		return nil, "", err
	}

	rows, err := w.DB.QueryContext(ctx, profileSelect+where+window, args...)
	if err != nil {
		return nil, "", fmt.Errorf("error retrieving profiles: %w", err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, "", fmt.Errorf("error scanning profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating profiles: %w", err)
	}

	profiles, token := nextToken(profiles, offset, limit)
	return profiles, token, nil
}
