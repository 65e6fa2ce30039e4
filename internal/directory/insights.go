package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rolodex-app/directory-services/internal/authn"
	"github.com/rolodex-app/directory-services/models"
)

// InsightService manages the insights of a single profile.
type InsightService struct {
	Reporter
	ProfileID uuid.UUID
	Store     InsightStore
	Session   authn.Session
	Now       func() time.Time
}

func NewInsightService(profileID uuid.UUID, store InsightStore, session authn.Session) *InsightService {
	return &InsightService{ProfileID: profileID, Store: store, Session: session, Now: time.Now}
}

// CreateInsight records text against the profile, stamped with the current
// time.
func (s *InsightService) CreateInsight(ctx context.Context, text string) (*models.Insight, error) {
	const op = "createInsight"

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	input := models.InsightInput{Text: text, Timestamp: now().UTC()}
	if err := input.Validate(); err != nil {
		return nil, s.fail(ctx, op, err)
	}
	owner, err := s.Session.CurrentUser(ctx)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	insight, err := s.Store.CreateInsight(ctx, models.Insight{
		Text:      input.Text,
		Timestamp: input.Timestamp,
		ProfileID: s.ProfileID,
		Owner:     owner,
	})
	if err != nil {
		return nil, s.fail(ctx, op, fmt.Errorf("%w: insight: %w", ErrCreate, err))
	}
	return insight, nil
}

func (s *InsightService) ListInsights(ctx context.Context) ([]models.Insight, error) {
	insights, err := listAll(ctx, s.Store.ListInsights, models.Eq("profileID", s.ProfileID))
	if err != nil {
		return nil, s.fail(ctx, "listInsights", err)
	}
	return insights, nil
}

// DeleteInsight removes one insight of the profile. An insight that belongs
// to another profile is reported as not found.
func (s *InsightService) DeleteInsight(ctx context.Context, id uuid.UUID) error {
	const op = "deleteInsight"

	insight, err := s.Store.GetInsight(ctx, id)
	if err != nil {
		return s.fail(ctx, op, err)
	}
	if insight == nil || insight.ProfileID != s.ProfileID {
		return s.fail(ctx, op, fmt.Errorf("insight %s: %w", id, ErrNotFound))
	}
	if err := s.Store.DeleteInsight(ctx, id); err != nil {
		return s.fail(ctx, op, fmt.Errorf("error deleting insight %s: %w", id, err))
	}
	return nil
}
