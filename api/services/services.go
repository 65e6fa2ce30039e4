package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/uuid"
	"github.com/rolodex-app/directory-services/internal/appconfig"
	"github.com/rolodex-app/directory-services/internal/authn"
	"github.com/rolodex-app/directory-services/internal/directory"
	"github.com/rolodex-app/directory-services/internal/photos"
	"github.com/rolodex-app/directory-services/models"
)

// PhotoService is the storage side of profile photos.
type PhotoService interface {
	directory.PhotoStore
	SignedURL(ctx context.Context, key string) (string, error)
}

type STSClient interface {
	AssumeRoleWithWebIdentity(ctx context.Context,
		params *sts.AssumeRoleWithWebIdentityInput, optFns ...func(*sts.Options)) (
		*sts.AssumeRoleWithWebIdentityOutput, error)
}

// Service contains all shared dependencies for handlers.
type Service struct {
	Config  *appconfig.Config
	Backend directory.Backend
	Photos  PhotoService
	CDN     photos.CDN
	// TempDir receives uploaded photo parts until they are stored.
	TempDir string
}

func (svc *Service) profiles() *directory.ProfileService {
	p := directory.NewProfileService(svc.Backend, svc.Photos, authn.ContextSession{}, svc.CDN)
	if svc.Config != nil {
		p.Compensate = svc.Config.Directory.Compensate
		p.ListLimit = svc.Config.Directory.ListLimit
	}
	return p
}

func (svc *Service) groups() *directory.GroupService {
	return directory.NewGroupService(svc.Backend, authn.ContextSession{})
}

func (svc *Service) insights(profileID uuid.UUID) *directory.InsightService {
	return directory.NewInsightService(profileID, svc.Backend, authn.ContextSession{})
}

// ownedProfile loads a profile and checks it belongs to owner.
func (svc *Service) ownedProfile(ctx context.Context, id uuid.UUID, owner string) (*models.Profile, error) {
	profile, err := svc.Backend.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("profile %s: %w", id, directory.ErrNotFound)
	}
	if profile.Owner != owner {
		return nil, errForbidden
	}
	return profile, nil
}

func (svc *Service) ownedGroup(ctx context.Context, id uuid.UUID, owner string) (*models.Group, error) {
	group, err := svc.Backend.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, fmt.Errorf("group %s: %w", id, directory.ErrNotFound)
	}
	if group.Owner != owner {
		return nil, errForbidden
	}
	return group, nil
}

// checkGroups verifies every group exists and belongs to owner.
func (svc *Service) checkGroups(ctx context.Context, owner string, ids ...[]uuid.UUID) error {
	for _, set := range ids {
		for _, id := range set {
			if _, err := svc.ownedGroup(ctx, id, owner); err != nil {
				return err
			}
		}
	}
	return nil
}
