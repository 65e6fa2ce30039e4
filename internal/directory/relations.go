package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rolodex-app/directory-services/models"
	"golang.org/x/sync/errgroup"
)

// resolveLimit bounds the lookups in flight for one decoration pass.
const resolveLimit = 32

type listFunc[T any] func(ctx context.Context, opts models.ListOptions) ([]T, string, error)

// listAll follows paging tokens until the filter is exhausted.
func listAll[T any](ctx context.Context, list listFunc[T], filter models.Filter) ([]T, error) {
	opts := models.ListOptions{Limit: models.MaxListLimit, Filter: filter}
	var out []T
	for {
		items, token, err := list(ctx, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if token == "" {
			return out, nil
		}
		opts.PagingToken = token
	}
}

type relationStore interface {
	GroupStore
	MembershipStore
}

// groupsOf resolves the groups a profile belongs to, one lookup per
// membership. Memberships whose group has gone are skipped.
func groupsOf(ctx context.Context, store relationStore, profileID uuid.UUID) ([]models.Group, error) {
	memberships, err := listAll(ctx, store.ListProfileGroups, models.Eq("profileID", profileID))
	if err != nil {
		return nil, err
	}

	resolved := make([]*models.Group, len(memberships))
	var g errgroup.Group
	for i, m := range memberships {
		g.Go(func() error {
			group, err := store.GetGroup(ctx, m.GroupID)
			if err != nil {
				return err
			}
			resolved[i] = group
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	groups := make([]models.Group, 0, len(resolved))
	seen := make(map[uuid.UUID]bool, len(resolved))
	for _, group := range resolved {
		if group == nil || seen[group.ID] {
			continue
		}
		seen[group.ID] = true
		groups = append(groups, *group)
	}
	return groups, nil
}

// findMembership returns the first join row for the pair, or nil.
func findMembership(ctx context.Context, store MembershipStore, profileID, groupID uuid.UUID) (*models.ProfileGroup, error) {
	rows, _, err := store.ListProfileGroups(ctx, models.ListOptions{
		Limit:  1,
		Filter: models.And(models.Eq("profileID", profileID), models.Eq("groupID", groupID)),
	})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// ignoreMissing treats deleting an already deleted row as success.
func ignoreMissing(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
