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

const groupSelect = `SELECT id, name, type, description, member_count, owner, created_at, updated_at
	FROM contact_groups`

func scanGroup(row interface{ Scan(...interface{}) error }) (models.Group, error) {
	var g models.Group
	err := row.Scan(&g.ID, &g.Name, &g.Type, &g.Description, &g.MemberCount, &g.Owner, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func (w *DirectoryDB) CreateGroup(ctx context.Context, g models.Group) (*models.Group, error) {
	g.ID = uuid.New()
	g.CreatedAt = now()
	g.UpdatedAt = g.CreatedAt

	_, err := w.exec(ctx, `
		INSERT INTO contact_groups (id, name, type, description, member_count, owner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		g.ID, g.Name, g.Type, g.Description, g.MemberCount, g.Owner, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error inserting group: %w", err)
	}

	w.notify(events.EntityGroup, events.ActionCreate, g.ID, g.Owner)
	return &g, nil
}

// GetGroup returns nil, nil when the group does not exist.
func (w *DirectoryDB) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	g, err := scanGroup(w.DB.QueryRowContext(ctx, groupSelect+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving group: %w", err)
	}
	return &g, nil
}

func (w *DirectoryDB) UpdateGroup(ctx context.Context, g models.Group) (*models.Group, error) {
	g.UpdatedAt = now()

	n, err := w.exec(ctx, `
		UPDATE contact_groups SET name = $2, type = $3, description = $4, member_count = $5, updated_at = $6
		WHERE id = $1`,
		g.ID, g.Name, g.Type, g.Description, g.MemberCount, g.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error updating group: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("group %s: %w", g.ID, models.ErrNotFound)
	}

	w.notify(events.EntityGroup, events.ActionUpdate, g.ID, g.Owner)
	return &g, nil
}

func (w *DirectoryDB) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	var owner string
	err := w.DB.QueryRowContext(ctx, `DELETE FROM contact_groups WHERE id = $1 RETURNING owner`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("group %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("error deleting group: %w", err)
	}

	w.notify(events.EntityGroup, events.ActionDelete, id, owner)
	return nil
}

func (w *DirectoryDB) ListGroups(ctx context.Context, opts models.ListOptions) ([]models.Group, string, error) {
	where, args, err := groupColumns.where(opts.Filter)
	if err != nil {
		return nil, "", err
	}
	window, args, offset, limit, err := page(opts, args)
	if err != nil {
		return nil, "", err
	}

	rows, err := w.DB.QueryContext(ctx, groupSelect+where+window, args...)
	if err != nil {
		return nil, "", fmt.Errorf("error retrieving groups: %w", err)
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, "", fmt.Errorf("error scanning group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating groups: %w", err)
	}

	groups, token := nextToken(groups, offset, limit)
	return groups, token, nil
}
