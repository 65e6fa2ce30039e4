package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rolodex-app/directory-services/internal/authn"
	"github.com/rolodex-app/directory-services/internal/photos"
	"github.com/rolodex-app/directory-services/models"
	"golang.org/x/sync/errgroup"
)

// ProfileChanges describes one updateProfile call. Input always carries the
// full mutable field set.
type ProfileChanges struct {
	Input            models.ProfileInput
	PhotoFile        string
	InsightsToAdd    []models.InsightInput
	InsightsToRemove []uuid.UUID
	GroupsToAdd      []uuid.UUID
	GroupsToRemove   []uuid.UUID
}

// ProfileService orchestrates profile writes across the profile row, its
// insights, its memberships and its photo.
type ProfileService struct {
	Reporter
	Store   Backend
	Photos  PhotoStore
	Session authn.Session
	CDN     photos.CDN
	// Compensate undoes already applied steps when a create or update fails
	// part way. Off by default: partial results are left in place.
	Compensate bool
	// ListLimit caps the profiles fetched for the owned list.
	ListLimit int
	Now       func() time.Time
}

func NewProfileService(store Backend, photoStore PhotoStore, session authn.Session, cdn photos.CDN) *ProfileService {
	return &ProfileService{
		Store:     store,
		Photos:    photoStore,
		Session:   session,
		CDN:       cdn,
		ListLimit: models.MaxListLimit,
		Now:       time.Now,
	}
}

func (s *ProfileService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *ProfileService) withPhotoURL(p *models.Profile) {
	if p.PhotoKey != "" {
		p.PhotoURL = s.CDN.URL(p.PhotoKey)
	}
}

func (s *ProfileService) insightInputs(inputs []models.InsightInput) ([]models.InsightInput, error) {
	out := make([]models.InsightInput, len(inputs))
	for i, in := range inputs {
		if in.Timestamp.IsZero() {
			in.Timestamp = s.now()
		}
		if err := in.Validate(); err != nil {
			return nil, err
		}
		out[i] = in
	}
	return out, nil
}

// CreateProfile uploads the photo if one is given, inserts the profile, then
// creates its insights and memberships concurrently.
func (s *ProfileService) CreateProfile(ctx context.Context, input models.ProfileInput, photoFile string,
	insights []models.InsightInput, groupIDs []uuid.UUID) (*models.Profile, error) {

	const op = "createProfile"

	if err := input.Validate(); err != nil {
		return nil, s.fail(ctx, op, err)
	}
	insights, err := s.insightInputs(insights)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	owner, err := s.Session.CurrentUser(ctx)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	undo := &undoLog{}
	profile := models.Profile{Owner: owner}
	input.Apply(&profile)

	if photoFile != "" {
		upload, err := s.Photos.UploadPhoto(ctx, photoFile)
		if err != nil {
			return nil, s.fail(ctx, op, err)
		}
		profile.PhotoKey = upload.Key
		profile.PhotoURL = s.CDN.URL(upload.Key)
		undo.add("upload photo", func(ctx context.Context) error { return s.Photos.RemovePhoto(ctx, upload.Key) })
	}

	created, err := s.Store.CreateProfile(ctx, profile)
	if err != nil {
		if s.Compensate {
			undo.run(ctx, s.Reporter)
		}
		return nil, s.fail(ctx, op, fmt.Errorf("%w: profile: %w", ErrCreate, err))
	}
	undo.add("create profile", func(ctx context.Context) error { return s.Store.DeleteProfile(ctx, created.ID) })

	var g errgroup.Group
	for _, in := range insights {
		g.Go(func() error {
			insight, err := s.Store.CreateInsight(ctx, models.Insight{
				Text: in.Text, Timestamp: in.Timestamp, ProfileID: created.ID, Owner: owner,
			})
			if err != nil {
				return fmt.Errorf("error creating insight: %w", err)
			}
			undo.add("create insight", func(ctx context.Context) error { return s.Store.DeleteInsight(ctx, insight.ID) })
			return nil
		})
	}
	for _, groupID := range unique(groupIDs) {
		g.Go(func() error {
			pg, err := s.Store.CreateProfileGroup(ctx, models.ProfileGroup{
				ProfileID: created.ID, GroupID: groupID, JoinedDate: s.now(), Owner: owner,
			})
			if err != nil {
				return fmt.Errorf("error adding profile to group %s: %w", groupID, err)
			}
			undo.add("create membership", func(ctx context.Context) error { return s.Store.DeleteProfileGroup(ctx, pg.ID) })
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if s.Compensate {
			undo.run(ctx, s.Reporter)
		}
		return nil, s.fail(ctx, op, err)
	}

	s.logger(ctx).Info().Str("profile_id", created.ID.String()).Int("insights", len(insights)).
		Int("groups", len(groupIDs)).Msg("Profile created")
	return created, nil
}

// GetProfile fetches a profile, recomputing its photo URL from the key. With
// includeRelations its insights and groups are resolved into ExtendedData.
func (s *ProfileService) GetProfile(ctx context.Context, id uuid.UUID, includeRelations bool) (*models.ProfileDetails, error) {
	const op = "getProfile"

	profile, err := s.Store.GetProfile(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, op, fmt.Errorf("error fetching profile %s: %w", id, err))
	}
	if profile == nil {
		return nil, s.fail(ctx, op, fmt.Errorf("profile %s: %w", id, ErrNotFound))
	}
	s.withPhotoURL(profile)

	details := &models.ProfileDetails{Profile: *profile}
	if !includeRelations {
		return details, nil
	}

	extended := &models.ExtendedData{}
	var g errgroup.Group
	g.Go(func() error {
		insights, err := listAll(ctx, s.Store.ListInsights, models.Eq("profileID", id))
		extended.InsightsData = insights
		return err
	})
	g.Go(func() error {
		groups, err := groupsOf(ctx, s.Store, id)
		extended.GroupsData = groups
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail(ctx, op, fmt.Errorf("error fetching relations of profile %s: %w", id, err))
	}
	if extended.InsightsData == nil {
		extended.InsightsData = []models.Insight{}
	}
	if extended.GroupsData == nil {
		extended.GroupsData = []models.Group{}
	}

	details.ExtendedData = extended
	return details, nil
}

// UpdateProfile rewrites the profile row and then applies the insight and
// membership changes as one unordered concurrent batch.
func (s *ProfileService) UpdateProfile(ctx context.Context, id uuid.UUID, changes ProfileChanges) (*models.Profile, error) {
	const op = "updateProfile"

	if err := changes.Input.Validate(); err != nil {
		return nil, s.fail(ctx, op, err)
	}
	insights, err := s.insightInputs(changes.InsightsToAdd)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	owner, err := s.Session.CurrentUser(ctx)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	existing, err := s.Store.GetProfile(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, op, fmt.Errorf("error fetching profile %s: %w", id, err))
	}
	if existing == nil {
		return nil, s.fail(ctx, op, fmt.Errorf("profile %s: %w", id, ErrNotFound))
	}

	undo := &undoLog{}
	updated := *existing
	changes.Input.Apply(&updated)

	// stored is set while the row refers to the new upload.
	stored := false

	if changes.PhotoFile != "" {
		upload, err := s.Photos.UploadPhoto(ctx, changes.PhotoFile)
		if err != nil {
			return nil, s.fail(ctx, op, err)
		}
		updated.PhotoKey = upload.Key
		undo.add("upload photo", func(ctx context.Context) error {
			if stored {
				return nil
			}
			return s.Photos.RemovePhoto(ctx, upload.Key)
		})
	}
	updated.PhotoURL = s.CDN.URL(updated.PhotoKey)

	saved, err := s.Store.UpdateProfile(ctx, updated)
	if err != nil {
		if s.Compensate {
			undo.run(ctx, s.Reporter)
		}
		return nil, s.fail(ctx, op, fmt.Errorf("error updating profile %s: %w", id, err))
	}

	// From here on the row refers to the new photo. Undoing restores the old
	// row first, so the new object is never removed while it is stored.
	stored = true
	undo.add("update profile", func(ctx context.Context) error {
		if _, err := s.Store.UpdateProfile(ctx, *existing); err != nil {
			return err
		}
		stored = false
		return nil
	})

	var g errgroup.Group
	for _, in := range insights {
		g.Go(func() error {
			insight, err := s.Store.CreateInsight(ctx, models.Insight{
				Text: in.Text, Timestamp: in.Timestamp, ProfileID: id, Owner: owner,
			})
			if err != nil {
				return fmt.Errorf("error creating insight: %w", err)
			}
			undo.add("create insight", func(ctx context.Context) error { return s.Store.DeleteInsight(ctx, insight.ID) })
			return nil
		})
	}
	for _, insightID := range changes.InsightsToRemove {
		g.Go(func() error {
			insight, err := s.Store.GetInsight(ctx, insightID)
			if err != nil {
				return fmt.Errorf("error fetching insight %s: %w", insightID, err)
			}
			// Ids that are gone or belong to another profile are skipped.
			if insight == nil || insight.ProfileID != id {
				return nil
			}
			if err := ignoreMissing(s.Store.DeleteInsight(ctx, insightID)); err != nil {
				return fmt.Errorf("error deleting insight %s: %w", insightID, err)
			}
			return nil
		})
	}

	// Memberships for the same group are serialised so a repeated add in one
	// call cannot race itself into a duplicate row.
	var locks sync.Map
	lock := func(groupID uuid.UUID) func() {
		m, _ := locks.LoadOrStore(groupID, &sync.Mutex{})
		mu := m.(*sync.Mutex)
		mu.Lock()
		return mu.Unlock
	}

	for _, groupID := range unique(changes.GroupsToAdd) {
		g.Go(func() error {
			defer lock(groupID)()
			existing, err := findMembership(ctx, s.Store, id, groupID)
			if err != nil {
				return fmt.Errorf("error checking membership of group %s: %w", groupID, err)
			}
			if existing != nil {
				return nil
			}
			pg, err := s.Store.CreateProfileGroup(ctx, models.ProfileGroup{
				ProfileID: id, GroupID: groupID, JoinedDate: s.now(), Owner: owner,
			})
			if err != nil {
				return fmt.Errorf("error adding profile to group %s: %w", groupID, err)
			}
			undo.add("create membership", func(ctx context.Context) error { return s.Store.DeleteProfileGroup(ctx, pg.ID) })
			return nil
		})
	}
	for _, groupID := range changes.GroupsToRemove {
		g.Go(func() error {
			defer lock(groupID)()
			match, err := findMembership(ctx, s.Store, id, groupID)
			if err != nil {
				return fmt.Errorf("error finding membership of group %s: %w", groupID, err)
			}
			if match == nil {
				return nil
			}
			if err := ignoreMissing(s.Store.DeleteProfileGroup(ctx, match.ID)); err != nil {
				return fmt.Errorf("error removing profile from group %s: %w", groupID, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if s.Compensate {
			undo.run(ctx, s.Reporter)
		} else {
			s.removeReplacedPhoto(ctx, existing, saved)
		}
		return nil, s.fail(ctx, op, err)
	}

	s.removeReplacedPhoto(ctx, existing, saved)
	s.logger(ctx).Info().Str("profile_id", id.String()).Msg("Profile updated")
	return saved, nil
}

// removeReplacedPhoto drops the previous object once the stored row no longer
// refers to it.
func (s *ProfileService) removeReplacedPhoto(ctx context.Context, before, after *models.Profile) {
	if before.PhotoKey == "" || before.PhotoKey == after.PhotoKey {
		return
	}
	if err := s.Photos.RemovePhoto(ctx, before.PhotoKey); err != nil {
		s.warn(ctx, "remove old photo", err)
	}
}

// DeleteProfile removes the photo, the insights, the memberships and finally
// the profile row, in that order.
func (s *ProfileService) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	const op = "deleteProfile"

	profile, err := s.Store.GetProfile(ctx, id)
	if err != nil {
		return s.fail(ctx, op, fmt.Errorf("error fetching profile %s: %w", id, err))
	}
	if profile == nil {
		return s.fail(ctx, op, fmt.Errorf("profile %s: %w", id, ErrNotFound))
	}

	if profile.PhotoKey != "" {
		if err := s.Photos.RemovePhoto(ctx, profile.PhotoKey); err != nil {
			s.warn(ctx, "remove photo", err)
		}
	}

	insights, err := listAll(ctx, s.Store.ListInsights, models.Eq("profileID", id))
	if err != nil {
		return s.fail(ctx, op, fmt.Errorf("error listing insights of profile %s: %w", id, err))
	}
	var g errgroup.Group
	for _, in := range insights {
		g.Go(func() error { return ignoreMissing(s.Store.DeleteInsight(ctx, in.ID)) })
	}
	if err := g.Wait(); err != nil {
		return s.fail(ctx, op, fmt.Errorf("error deleting insights of profile %s: %w", id, err))
	}

	memberships, err := listAll(ctx, s.Store.ListProfileGroups, models.Eq("profileID", id))
	if err != nil {
		return s.fail(ctx, op, fmt.Errorf("error listing memberships of profile %s: %w", id, err))
	}
	for _, m := range memberships {
		g.Go(func() error { return ignoreMissing(s.Store.DeleteProfileGroup(ctx, m.ID)) })
	}
	if err := g.Wait(); err != nil {
		return s.fail(ctx, op, fmt.Errorf("error deleting memberships of profile %s: %w", id, err))
	}

	if err := s.Store.DeleteProfile(ctx, id); err != nil {
		return s.fail(ctx, op, fmt.Errorf("error deleting profile %s: %w", id, err))
	}

	s.logger(ctx).Info().Str("profile_id", id.String()).Int("insights", len(insights)).
		Int("memberships", len(memberships)).Msg("Profile deleted")
	return nil
}

// ListProfiles is a direct list over the store.
func (s *ProfileService) ListProfiles(ctx context.Context, opts models.ListOptions) ([]models.Profile, string, error) {
	profiles, token, err := s.Store.ListProfiles(ctx, opts)
	if err != nil {
		return nil, "", s.fail(ctx, "listProfiles", err)
	}
	for i := range profiles {
		s.withPhotoURL(&profiles[i])
	}
	return profiles, token, nil
}

// OwnedProfiles returns the current user's live profiles, each decorated with
// its groups.
func (s *ProfileService) OwnedProfiles(ctx context.Context) ([]models.ProfileWithGroups, error) {
	const op = "ownedProfiles"

	owner, err := s.Session.CurrentUser(ctx)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	profiles, _, err := s.Store.ListProfiles(ctx, models.ListOptions{
		Limit:  s.ListLimit,
		Filter: models.Eq("owner", owner),
	})
	if err != nil {
		return nil, s.fail(ctx, op, fmt.Errorf("error listing profiles: %w", err))
	}

	decorated, err := s.decorate(ctx, profiles, owner)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return decorated, nil
}

// decorate keeps the owner's live profiles and attaches their groups,
// resolving all profiles concurrently.
func (s *ProfileService) decorate(ctx context.Context, profiles []models.Profile, owner string) ([]models.ProfileWithGroups, error) {
	kept := make([]models.ProfileWithGroups, 0, len(profiles))
	for _, p := range profiles {
		if p.Owner != owner || p.Deleted {
			continue
		}
		s.withPhotoURL(&p)
		kept = append(kept, models.ProfileWithGroups{Profile: p})
	}

	var g errgroup.Group
	g.SetLimit(resolveLimit)
	for i := range kept {
		g.Go(func() error {
			groups, err := groupsOf(ctx, s.Store, kept[i].ID)
			if err != nil {
				return fmt.Errorf("error resolving groups of profile %s: %w", kept[i].ID, err)
			}
			kept[i].Groups = groups
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return kept, nil
}

func unique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
