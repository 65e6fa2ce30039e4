package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rolodex-app/directory-services/internal/authn"
	"github.com/rolodex-app/directory-services/models"
	"golang.org/x/sync/errgroup"
)

type GroupService struct {
	Reporter
	Store   Backend
	Session authn.Session
}

func NewGroupService(store Backend, session authn.Session) *GroupService {
	return &GroupService{Store: store, Session: session}
}

// CreateGroup inserts a group owned by the current user. Names are not
// unique: two calls with the same name produce two groups.
func (s *GroupService) CreateGroup(ctx context.Context, input models.GroupInput) (*models.Group, error) {
	const op = "createGroup"

	if err := input.Validate(); err != nil {
		return nil, s.fail(ctx, op, err)
	}
	owner, err := s.Session.CurrentUser(ctx)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	groupType := strings.TrimSpace(input.Type)
	if groupType == "" {
		groupType = models.DefaultGroupType
	}

	group, err := s.Store.CreateGroup(ctx, models.Group{
		Name:        input.Name,
		Type:        groupType,
		Description: input.Description,
		MemberCount: 1,
		Owner:       owner,
	})
	if err != nil {
		return nil, s.fail(ctx, op, fmt.Errorf("%w: group: %w", ErrCreate, err))
	}

	s.logger(ctx).Info().Str("group_id", group.ID.String()).Str("name", group.Name).Msg("Group created")
	return group, nil
}

func (s *GroupService) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	group, err := s.Store.GetGroup(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "getGroup", err)
	}
	if group == nil {
		return nil, s.fail(ctx, "getGroup", fmt.Errorf("group %s: %w", id, ErrNotFound))
	}
	return group, nil
}

func (s *GroupService) ListGroups(ctx context.Context, opts models.ListOptions) ([]models.Group, string, error) {
	groups, token, err := s.Store.ListGroups(ctx, opts)
	if err != nil {
		return nil, "", s.fail(ctx, "listGroups", err)
	}
	return groups, token, nil
}

// UpdateGroup applies a partial update. Unset patch fields keep their stored
// value.
func (s *GroupService) UpdateGroup(ctx context.Context, id uuid.UUID, patch models.GroupPatch) (*models.Group, error) {
	const op = "updateGroup"

	if err := patch.Validate(); err != nil {
		return nil, s.fail(ctx, op, err)
	}
	group, err := s.Store.GetGroup(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	if group == nil {
		return nil, s.fail(ctx, op, fmt.Errorf("group %s: %w", id, ErrNotFound))
	}

	patch.Apply(group)
	updated, err := s.Store.UpdateGroup(ctx, *group)
	if err != nil {
		return nil, s.fail(ctx, op, fmt.Errorf("error updating group %s: %w", id, err))
	}
	return updated, nil
}

// DeleteGroup removes every membership of the group and then the group.
func (s *GroupService) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	const op = "deleteGroup"

	memberships, err := listAll(ctx, s.Store.ListProfileGroups, models.Eq("groupID", id))
	if err != nil {
		return s.fail(ctx, op, fmt.Errorf("error listing memberships of group %s: %w", id, err))
	}

	var g errgroup.Group
	for _, m := range memberships {
		g.Go(func() error { return ignoreMissing(s.Store.DeleteProfileGroup(ctx, m.ID)) })
	}
	if err := g.Wait(); err != nil {
		return s.fail(ctx, op, fmt.Errorf("error deleting memberships of group %s: %w", id, err))
	}

	if err := s.Store.DeleteGroup(ctx, id); err != nil {
		return s.fail(ctx, op, fmt.Errorf("error deleting group %s: %w", id, err))
	}

	s.logger(ctx).Info().Str("group_id", id.String()).Int("memberships", len(memberships)).Msg("Group deleted")
	return nil
}
