package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rolodex-app/directory-services/internal/authn"
	"github.com/rolodex-app/directory-services/internal/events"
	"github.com/rolodex-app/directory-services/internal/memstore"
	"github.com/rolodex-app/directory-services/internal/photos"
	"github.com/rolodex-app/directory-services/models"
	"github.com/stretchr/testify/require"
)

const testOwner = "user-1"

var testCDN = photos.CDN{Base: "https://cdn.test"}

// fakePhotos records uploads and removals instead of talking to storage.
type fakePhotos struct {
	mu        sync.Mutex
	next      int
	uploaded  []string
	removed   []string
	uploadErr error
	removeErr error
}

func (f *fakePhotos) UploadPhoto(ctx context.Context, localFileURI string) (*photos.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.next++
	key := fmt.Sprintf("private/identity-1/photo-%d.jpg", f.next)
	f.uploaded = append(f.uploaded, key)
	return &photos.Upload{Key: key, URL: testCDN.URL(key)}, nil
}

func (f *fakePhotos) RemovePhoto(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, key)
	return f.removeErr
}

func (f *fakePhotos) removedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

type fixture struct {
	hub      *events.Hub
	store    *memstore.Store
	photos   *fakePhotos
	profiles *ProfileService
	groups   *GroupService
	errors   []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{hub: events.NewHub(), photos: &fakePhotos{}}
	f.store = memstore.New(f.hub)
	session := authn.StaticSession{UserID: testOwner, Identity: "identity-1"}

	f.profiles = NewProfileService(f.store, f.photos, session, testCDN)
	f.groups = NewGroupService(f.store, session)
	var mu sync.Mutex
	onError := func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		f.errors = append(f.errors, msg)
	}
	f.profiles.OnError = onError
	f.groups.OnError = onError

	t.Cleanup(func() { f.store.Close() })
	return f
}

func (f *fixture) group(t *testing.T, name string) *models.Group {
	t.Helper()
	g, err := f.groups.CreateGroup(context.Background(), models.GroupInput{Name: name})
	require.NoError(t, err)
	return g
}

func (f *fixture) count(t *testing.T, list func(context.Context, models.ListOptions) (int, error)) int {
	t.Helper()
	n, err := list(context.Background(), models.ListOptions{Limit: models.MaxListLimit})
	require.NoError(t, err)
	return n
}

func (f *fixture) profileCount(ctx context.Context, opts models.ListOptions) (int, error) {
	items, _, err := f.store.ListProfiles(ctx, opts)
	return len(items), err
}

func (f *fixture) insightCount(ctx context.Context, opts models.ListOptions) (int, error) {
	items, _, err := f.store.ListInsights(ctx, opts)
	return len(items), err
}

func (f *fixture) membershipCount(ctx context.Context, opts models.ListOptions) (int, error) {
	items, _, err := f.store.ListProfileGroups(ctx, opts)
	return len(items), err
}

func failOn(op string) func(string) error {
	return func(called string) error {
		if called == op {
			return errors.New("simulated " + op + " failure")
		}
		return nil
	}
}
