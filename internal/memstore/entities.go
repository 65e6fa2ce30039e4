package memstore

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/rolodex-app/directory-services/internal/events"
	"github.com/rolodex-app/directory-services/models"
)

func profileFields(p models.Profile) map[string]string {
	return map[string]string{
		"id":        p.ID.String(),
		"firstName": p.FirstName,
		"lastName":  p.LastName,
		"photoKey":  p.PhotoKey,
		"owner":     p.Owner,
		"deleted":   strconv.FormatBool(p.Deleted),
	}
}

func groupFields(g models.Group) map[string]string {
	return map[string]string{
		"id":    g.ID.String(),
		"name":  g.Name,
		"type":  g.Type,
		"owner": g.Owner,
	}
}

func profileGroupFields(pg models.ProfileGroup) map[string]string {
	return map[string]string{
		"id":        pg.ID.String(),
		"profileID": pg.ProfileID.String(),
		"groupID":   pg.GroupID.String(),
		"owner":     pg.Owner,
	}
}

func insightFields(in models.Insight) map[string]string {
	return map[string]string{
		"id":        in.ID.String(),
		"profileID": in.ProfileID.String(),
		"owner":     in.Owner,
	}
}

// Profiles

func (s *Store) CreateProfile(ctx context.Context, p models.Profile) (*models.Profile, error) {
	if err := s.fail("CreateProfile"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	p.ID = uuid.New()
	p.CreatedAt = s.clock()
	p.UpdatedAt = p.CreatedAt
	s.put(s.profiles, p.ID, p.CreatedAt, p, profileFields(p))
	s.mu.Unlock()

	s.notify(events.EntityProfile, events.ActionCreate, p.ID, p.Owner)
	return &p, nil
}

func (s *Store) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	if err := s.fail("GetProfile"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.profiles.rows[id]
	if !ok {
		return nil, nil
	}
	p := r.value.(models.Profile)
	return &p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, p models.Profile) (*models.Profile, error) {
	if err := s.fail("UpdateProfile"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	r, ok := s.profiles.rows[p.ID]
	if !ok {
		s.mu.Unlock()
		return nil, notFound("profile", p.ID)
	}
	existing := r.value.(models.Profile)
	p.Owner = existing.Owner
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.clock()
	s.put(s.profiles, p.ID, p.CreatedAt, p, profileFields(p))
	s.mu.Unlock()

	s.notify(events.EntityProfile, events.ActionUpdate, p.ID, p.Owner)
	return &p, nil
}

// DeleteProfile removes the profile and, like the database foreign keys, its
// insights and memberships.
func (s *Store) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	if err := s.fail("DeleteProfile"); err != nil {
		return err
	}
	s.mu.Lock()
	r, ok := s.profiles.rows[id]
	if !ok {
		s.mu.Unlock()
		return notFound("profile", id)
	}
	owner := r.value.(models.Profile).Owner
	delete(s.profiles.rows, id)
	key := id.String()
	for rid, row := range s.insights.rows {
		if row.fields["profileID"] == key {
			delete(s.insights.rows, rid)
		}
	}
	for rid, row := range s.members.rows {
		if row.fields["profileID"] == key {
			delete(s.members.rows, rid)
		}
	}
	s.mu.Unlock()

	s.notify(events.EntityProfile, events.ActionDelete, id, owner)
	return nil
}

func (s *Store) ListProfiles(ctx context.Context, opts models.ListOptions) ([]models.Profile, string, error) {
	if err := s.fail("ListProfiles"); err != nil {
		return nil, "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return list[models.Profile](s.profiles, opts)
}

// Groups

func (s *Store) CreateGroup(ctx context.Context, g models.Group) (*models.Group, error) {
	if err := s.fail("CreateGroup"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	g.ID = uuid.New()
	g.CreatedAt = s.clock()
	g.UpdatedAt = g.CreatedAt
	s.put(s.groups, g.ID, g.CreatedAt, g, groupFields(g))
	s.mu.Unlock()

	s.notify(events.EntityGroup, events.ActionCreate, g.ID, g.Owner)
	return &g, nil
}

func (s *Store) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	if err := s.fail("GetGroup"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.groups.rows[id]
	if !ok {
		return nil, nil
	}
	g := r.value.(models.Group)
	return &g, nil
}

func (s *Store) UpdateGroup(ctx context.Context, g models.Group) (*models.Group, error) {
	if err := s.fail("UpdateGroup"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	r, ok := s.groups.rows[g.ID]
	if !ok {
		s.mu.Unlock()
		return nil, notFound("group", g.ID)
	}
	existing := r.value.(models.Group)
	g.Owner = existing.Owner
	g.CreatedAt = existing.CreatedAt
	g.UpdatedAt = s.clock()
	s.put(s.groups, g.ID, g.CreatedAt, g, groupFields(g))
	s.mu.Unlock()

	s.notify(events.EntityGroup, events.ActionUpdate, g.ID, g.Owner)
	return &g, nil
}

func (s *Store) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	if err := s.fail("DeleteGroup"); err != nil {
		return err
	}
	s.mu.Lock()
	r, ok := s.groups.rows[id]
	if !ok {
		s.mu.Unlock()
		return notFound("group", id)
	}
	owner := r.value.(models.Group).Owner
	delete(s.groups.rows, id)
	key := id.String()
	for rid, row := range s.members.rows {
		if row.fields["groupID"] == key {
			delete(s.members.rows, rid)
		}
	}
	s.mu.Unlock()

	s.notify(events.EntityGroup, events.ActionDelete, id, owner)
	return nil
}

func (s *Store) ListGroups(ctx context.Context, opts models.ListOptions) ([]models.Group, string, error) {
	if err := s.fail("ListGroups"); err != nil {
		return nil, "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return list[models.Group](s.groups, opts)
}

// Memberships

// CreateProfileGroup rejects rows whose profile or group does not exist.
func (s *Store) CreateProfileGroup(ctx context.Context, pg models.ProfileGroup) (*models.ProfileGroup, error) {
	if err := s.fail("CreateProfileGroup"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if _, ok := s.profiles.rows[pg.ProfileID]; !ok {
		s.mu.Unlock()
		return nil, notFound("profile", pg.ProfileID)
	}
	if _, ok := s.groups.rows[pg.GroupID]; !ok {
		s.mu.Unlock()
		return nil, notFound("group", pg.GroupID)
	}
	pg.ID = uuid.New()
	pg.CreatedAt = s.clock()
	pg.UpdatedAt = pg.CreatedAt
	if pg.JoinedDate.IsZero() {
		pg.JoinedDate = pg.CreatedAt
	}
	s.put(s.members, pg.ID, pg.CreatedAt, pg, profileGroupFields(pg))
	s.mu.Unlock()

	s.notify(events.EntityProfileGroup, events.ActionCreate, pg.ID, pg.Owner)
	return &pg, nil
}

func (s *Store) GetProfileGroup(ctx context.Context, id uuid.UUID) (*models.ProfileGroup, error) {
	if err := s.fail("GetProfileGroup"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.members.rows[id]
	if !ok {
		return nil, nil
	}
	pg := r.value.(models.ProfileGroup)
	return &pg, nil
}

func (s *Store) DeleteProfileGroup(ctx context.Context, id uuid.UUID) error {
	if err := s.fail("DeleteProfileGroup"); err != nil {
		return err
	}
	s.mu.Lock()
	r, ok := s.members.rows[id]
	if !ok {
		s.mu.Unlock()
		return notFound("profile group", id)
	}
	owner := r.value.(models.ProfileGroup).Owner
	delete(s.members.rows, id)
	s.mu.Unlock()

	s.notify(events.EntityProfileGroup, events.ActionDelete, id, owner)
	return nil
}

func (s *Store) ListProfileGroups(ctx context.Context, opts models.ListOptions) ([]models.ProfileGroup, string, error) {
	if err := s.fail("ListProfileGroups"); err != nil {
		return nil, "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return list[models.ProfileGroup](s.members, opts)
}

// Insights

func (s *Store) CreateInsight(ctx context.Context, in models.Insight) (*models.Insight, error) {
	if err := s.fail("CreateInsight"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if _, ok := s.profiles.rows[in.ProfileID]; !ok {
		s.mu.Unlock()
		return nil, notFound("profile", in.ProfileID)
	}
	in.ID = uuid.New()
	in.CreatedAt = s.clock()
	in.UpdatedAt = in.CreatedAt
	s.put(s.insights, in.ID, in.CreatedAt, in, insightFields(in))
	s.mu.Unlock()

	s.notify(events.EntityInsight, events.ActionCreate, in.ID, in.Owner)
	return &in, nil
}

func (s *Store) GetInsight(ctx context.Context, id uuid.UUID) (*models.Insight, error) {
	if err := s.fail("GetInsight"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.insights.rows[id]
	if !ok {
		return nil, nil
	}
	in := r.value.(models.Insight)
	return &in, nil
}

func (s *Store) DeleteInsight(ctx context.Context, id uuid.UUID) error {
	if err := s.fail("DeleteInsight"); err != nil {
		return err
	}
	s.mu.Lock()
	r, ok := s.insights.rows[id]
	if !ok {
		s.mu.Unlock()
		return notFound("insight", id)
	}
	owner := r.value.(models.Insight).Owner
	delete(s.insights.rows, id)
	s.mu.Unlock()

	s.notify(events.EntityInsight, events.ActionDelete, id, owner)
	return nil
}

func (s *Store) ListInsights(ctx context.Context, opts models.ListOptions) ([]models.Insight, string, error) {
	if err := s.fail("ListInsights"); err != nil {
		return nil, "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return list[models.Insight](s.insights, opts)
}
