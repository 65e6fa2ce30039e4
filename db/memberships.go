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

const profileGroupSelect = `SELECT id, profile_id, group_id, joined_date, owner, created_at, updated_at
	FROM profile_groups`

func scanProfileGroup(row interface{ Scan(...interface{}) error }) (models.ProfileGroup, error) {
	var pg models.ProfileGroup
	err := row.Scan(&pg.ID, &pg.ProfileID, &pg.GroupID, &pg.JoinedDate, &pg.Owner, &pg.CreatedAt, &pg.UpdatedAt)
	return pg, err
}

// CreateProfileGroup inserts a join row. Duplicate pairs are not rejected here.
func (w *DirectoryDB) CreateProfileGroup(ctx context.Context, pg models.ProfileGroup) (*models.ProfileGroup, error) {
	pg.ID = uuid.New()
	pg.CreatedAt = now()
	pg.UpdatedAt = pg.CreatedAt
	if pg.JoinedDate.IsZero() {
		pg.JoinedDate = pg.CreatedAt
	}

	_, err := w.exec(ctx, `
		INSERT INTO profile_groups (id, profile_id, group_id, joined_date, owner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		pg.ID, pg.ProfileID, pg.GroupID, pg.JoinedDate, pg.Owner, pg.CreatedAt, pg.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error inserting profile group: %w", err)
	}

	w.notify(events.EntityProfileGroup, events.ActionCreate, pg.ID, pg.Owner)
	return &pg, nil
}

// GetProfileGroup returns nil, nil when the row does not exist.
func (w *DirectoryDB) GetProfileGroup(ctx context.Context, id uuid.UUID) (*models.ProfileGroup, error) {
	pg, err := scanProfileGroup(w.DB.QueryRowContext(ctx, profileGroupSelect+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving profile group: %w", err)
	}
	return &pg, nil
}

func (w *DirectoryDB) DeleteProfileGroup(ctx context.Context, id uuid.UUID) error {
	var owner string
	err := w.DB.QueryRowContext(ctx, `DELETE FROM profile_groups WHERE id = $1 RETURNING owner`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("profile group %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("error deleting profile group: %w", err)
	}

	w.notify(events.EntityProfileGroup, events.ActionDelete, id, owner)
	return nil
}

func (w *DirectoryDB) ListProfileGroups(ctx context.Context, opts models.ListOptions) ([]models.ProfileGroup, string, error) {
	where, args, err := profileGroupColumns.where(opts.Filter)
	if err != nil {
		return nil, "", err
	}
	window, args, offset, limit, err := page(opts, args)
	if err != nil {
		return nil, "", err
	}

	rows, err := w.DB.QueryContext(ctx, profileGroupSelect+where+window, args...)
	if err != nil {
		return nil, "", fmt.Errorf("error retrieving profile groups: %w", err)
	}
	defer rows.Close()

	memberships := []models.ProfileGroup{}
	for rows.Next() {
		pg, err := scanProfileGroup(rows)
		if err != nil {
			return nil, "", fmt.Errorf("error scanning profile group: %w", err)
		}
		memberships = append(memberships, pg)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating profile groups: %w", err)
	}

	memberships, token := nextToken(memberships, offset, limit)
	return memberships, token, nil
}
