package directory

import (
	"context"

	"github.com/google/uuid"
	"github.com/rolodex-app/directory-services/internal/photos"
	"github.com/rolodex-app/directory-services/models"
)

type ProfileStore interface {
	CreateProfile(ctx context.Context, p models.Profile) (*models.Profile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, p models.Profile) (*models.Profile, error)
	DeleteProfile(ctx context.Context, id uuid.UUID) error
	ListProfiles(ctx context.Context, opts models.ListOptions) ([]models.Profile, string, error)
}

type GroupStore interface {
	CreateGroup(ctx context.Context, g models.Group) (*models.Group, error)
	GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error)
	UpdateGroup(ctx context.Context, g models.Group) (*models.Group, error)
	DeleteGroup(ctx context.Context, id uuid.UUID) error
	ListGroups(ctx context.Context, opts models.ListOptions) ([]models.Group, string, error)
}

type MembershipStore interface {
	CreateProfileGroup(ctx context.Context, pg models.ProfileGroup) (*models.ProfileGroup, error)
	GetProfileGroup(ctx context.Context, id uuid.UUID) (*models.ProfileGroup, error)
	DeleteProfileGroup(ctx context.Context, id uuid.UUID) error
	ListProfileGroups(ctx context.Context, opts models.ListOptions) ([]models.ProfileGroup, string, error)
}

type InsightStore interface {
	CreateInsight(ctx context.Context, in models.Insight) (*models.Insight, error)
	GetInsight(ctx context.Context, id uuid.UUID) (*models.Insight, error)
	DeleteInsight(ctx context.Context, id uuid.UUID) error
	ListInsights(ctx context.Context, opts models.ListOptions) ([]models.Insight, string, error)
}

// Backend is a complete directory store: *db.DirectoryDB or *memstore.Store.
type Backend interface {
	ProfileStore
	GroupStore
	MembershipStore
	InsightStore
	Ping(ctx context.Context) error
	Close() error
}

// PhotoStore uploads and removes profile photos.
type PhotoStore interface {
	UploadPhoto(ctx context.Context, localFileURI string) (*photos.Upload, error)
	RemovePhoto(ctx context.Context, key string) error
}
