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

const insightSelect = `SELECT id, body, recorded_at, profile_id, owner, created_at, updated_at FROM insights`

func scanInsight(row interface{ Scan(...interface{}) error }) (models.Insight, error) {
	var in models.Insight
	err := row.Scan(&in.ID, &in.Text, &in.Timestamp, &in.ProfileID, &in.Owner, &in.CreatedAt, &in.UpdatedAt)
	return in, err
}

func (w *DirectoryDB) CreateInsight(ctx context.Context, in models.Insight) (*models.Insight, error) {
	in.ID = uuid.New()
	in.CreatedAt = now()
	in.UpdatedAt = in.CreatedAt

	_, err := w.exec(ctx, `
		INSERT INTO insights (id, body, recorded_at, profile_id, owner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		in.ID, in.Text, in.Timestamp, in.ProfileID, in.Owner, in.CreatedAt, in.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error inserting insight: %w", err)
	}

	w.notify(events.EntityInsight, events.ActionCreate, in.ID, in.Owner)
	return &in, nil
}

// GetInsight returns nil, nil when the insight does not exist.
func (w *DirectoryDB) GetInsight(ctx context.Context, id uuid.UUID) (*models.Insight, error) {
	in, err := scanInsight(w.DB.QueryRowContext(ctx, insightSelect+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving insight: %w", err)
	}
	return &in, nil
}

func (w *DirectoryDB) DeleteInsight(ctx context.Context, id uuid.UUID) error {
	var owner string
	err := w.DB.QueryRowContext(ctx, `DELETE FROM insights WHERE id = $1 RETURNING owner`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("insight %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("error deleting insight: %w", err)
	}

	w.notify(events.EntityInsight, events.ActionDelete, id, owner)
	return nil
}

func (w *DirectoryDB) ListInsights(ctx context.Context, opts models.ListOptions) ([]models.Insight, string, error) {
	where, args, err := insightColumns.where(opts.Filter)
	if err != nil {
		return nil, "", err
	}
	window, args, offset, limit, err := page(opts, args)
	if err != nil {
		return nil, "", err
	}

	rows, err := w.DB.QueryContext(ctx, insightSelect+where+window, args...)
	if err != nil {
		return nil, "", fmt.Errorf("error retrieving insights: %w", err)
	}
	defer rows.Close()

	insights := []models.Insight{}
	for rows.Next() {
		in, err := scanInsight(rows)
		if err != nil {
			return nil, "", fmt.Errorf("error scanning insight: %w", err)
		}
		insights = append(insights, in)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating insights: %w", err)
	}

	insights, token := nextToken(insights, offset, limit)
	return insights, token, nil
}
