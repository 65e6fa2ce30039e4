package services

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rolodex-app/directory-services/internal/appconfig"
	"github.com/rolodex-app/directory-services/internal/authn"
	"github.com/rolodex-app/directory-services/internal/memstore"
	"github.com/rolodex-app/directory-services/internal/photos"
	"github.com/rolodex-app/directory-services/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPhotos struct {
	mock.Mock
}

func (m *MockPhotos) UploadPhoto(ctx context.Context, localFileURI string) (*photos.Upload, error) {
	args := m.Called(ctx, localFileURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*photos.Upload), args.Error(1)
}

func (m *MockPhotos) RemovePhoto(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockPhotos) SignedURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

var (
	alice = authn.Claims{StandardClaims: jwt.StandardClaims{Subject: "alice"}, IdentityID: "eu-west-2:alice"}
	bob   = authn.Claims{StandardClaims: jwt.StandardClaims{Subject: "bob"}, IdentityID: "eu-west-2:bob"}
)

func newService(t *testing.T) (*Service, *memstore.Store, *MockPhotos) {
	t.Helper()
	store := memstore.New(nil)
	ph := &MockPhotos{}
	svc := &Service{
		Config:  &appconfig.Config{BasePath: "/api", Directory: appconfig.DirectoryConfig{ListLimit: 100}},
		Backend: store,
		Photos:  ph,
		CDN:     photos.CDN{Base: "https://cdn.test"},
		TempDir: t.TempDir(),
	}
	return svc, store, ph
}

func request(t *testing.T, method, target string, claims *authn.Claims, body interface{}, vars map[string]string) *http.Request {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if claims != nil {
		req = req.WithContext(authn.WithClaims(req.Context(), *claims))
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

func serve(svc *Service, fn func(*Service, http.ResponseWriter, *http.Request), req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	fn(svc, rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestCreateAndListProfiles(t *testing.T) {
	svc, _, _ := newService(t)

	rr := serve(svc, CreateGroupService, request(t, http.MethodPost, "/groups", &alice, models.GroupInput{Name: "Team"}, nil))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	group := decode[models.Group](t, rr)
	assert.Equal(t, "/api/groups/"+group.ID.String(), rr.Header().Get("Location"))

	body := CreateProfileRequest{
		ProfileInput: models.ProfileInput{FirstName: "Ada", LastName: "Lovelace"},
		Insights:     []models.InsightInput{{Text: "met at conference"}},
		Groups:       []uuid.UUID{group.ID},
	}
	rr = serve(svc, CreateProfileService, request(t, http.MethodPost, "/profiles", &alice, body, nil))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[models.Profile](t, rr)
	assert.Equal(t, "alice", created.Owner)

	rr = serve(svc, ListProfilesService, request(t, http.MethodGet, "/profiles", &alice, nil, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[models.ProfilesResponse](t, rr)
	require.Len(t, list.Profiles, 1)
	require.Len(t, list.Profiles[0].Groups, 1)
	assert.Equal(t, "Team", list.Profiles[0].Groups[0].Name)

	rr = serve(svc, ListProfilesService, request(t, http.MethodGet, "/profiles", &bob, nil, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[models.ProfilesResponse](t, rr).Profiles)

	rr = serve(svc, GetProfileService, request(t, http.MethodGet, "/profiles/x?relations=true", &alice, nil,
		map[string]string{"profile-id": created.ID.String()}))
	require.Equal(t, http.StatusOK, rr.Code)
	details := decode[models.ProfileDetails](t, rr)
	require.NotNil(t, details.ExtendedData)
	assert.Len(t, details.ExtendedData.InsightsData, 1)
	assert.Len(t, details.ExtendedData.GroupsData, 1)
}

func TestCreateProfileWithPhoto(t *testing.T) {
	svc, _, ph := newService(t)

	var spooled string
	ph.On("UploadPhoto", mock.Anything, mock.MatchedBy(func(uri string) bool {
		u, err := url.Parse(uri)
		if err != nil || u.Scheme != "file" {
			return false
		}
		data, err := os.ReadFile(u.Path)
		spooled = u.Path
		return err == nil && string(data) == "jpeg-bytes"
	})).Return(&photos.Upload{Key: "private/eu-west-2:alice/1.jpg"}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("profile", `{"firstName":"Ada","lastName":"Lovelace"}`))
	part, err := mw.CreateFormFile("photo", "ada.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/profiles", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(authn.WithClaims(req.Context(), alice))

	rr := serve(svc, CreateProfileService, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	created := decode[models.Profile](t, rr)
	assert.Equal(t, "private/eu-west-2:alice/1.jpg", created.PhotoKey)
	assert.Equal(t, "https://cdn.test/private%2Feu-west-2%3Aalice%2F1.jpg", created.PhotoURL)
	ph.AssertExpectations(t)

	_, err = os.Stat(spooled)
	assert.True(t, os.IsNotExist(err), "spooled photo should be removed")
}

func TestProfileErrorStatuses(t *testing.T) {
	svc, store, ph := newService(t)
	ctx := context.Background()

	owned, err := store.CreateProfile(ctx, models.Profile{FirstName: "Ada", LastName: "Lovelace", Owner: "alice"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		fn     func(*Service, http.ResponseWriter, *http.Request)
		req    *http.Request
		status int
	}{
		{"missing claims", ListProfilesService,
			request(t, http.MethodGet, "/profiles", nil, nil, nil), http.StatusUnauthorized},
		{"validation", CreateProfileService,
			request(t, http.MethodPost, "/profiles", &alice, CreateProfileRequest{}, nil), http.StatusBadRequest},
		{"bad id", GetProfileService,
			request(t, http.MethodGet, "/profiles/x", &alice, nil, map[string]string{"profile-id": "x"}), http.StatusBadRequest},
		{"not found", GetProfileService,
			request(t, http.MethodGet, "/profiles/x", &alice, nil, map[string]string{"profile-id": uuid.NewString()}), http.StatusNotFound},
		{"other owner", DeleteProfileService,
			request(t, http.MethodDelete, "/profiles/x", &bob, nil, map[string]string{"profile-id": owned.ID.String()}), http.StatusForbidden},
		{"unknown group", CreateProfileService,
			request(t, http.MethodPost, "/profiles", &alice, CreateProfileRequest{
				ProfileInput: models.ProfileInput{FirstName: "A", LastName: "B"}, Groups: []uuid.UUID{uuid.New()}}, nil),
			http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(svc, tt.fn, tt.req)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}

	ph.On("UploadPhoto", mock.Anything, mock.Anything).Return(nil, photos.ErrUnsupportedFormat)
	_, err = svc.profiles().CreateProfile(authn.WithClaims(ctx, alice), models.ProfileInput{FirstName: "A", LastName: "B"}, "http://x", nil, nil)
	assert.Equal(t, http.StatusUnsupportedMediaType, StatusFor(err))
}

func TestUpdateAndDeleteProfile(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	p, err := store.CreateProfile(ctx, models.Profile{FirstName: "Ada", LastName: "Lovelace", Owner: "alice"})
	require.NoError(t, err)
	vars := map[string]string{"profile-id": p.ID.String()}

	rr := serve(svc, UpdateProfileService, request(t, http.MethodPut, "/profiles/x", &alice, UpdateProfileRequest{
		Profile:       models.ProfileInput{FirstName: "Augusta", LastName: "King"},
		InsightsToAdd: []models.InsightInput{{Text: "renamed"}},
	}, vars))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Augusta", decode[models.Profile](t, rr).FirstName)

	rr = serve(svc, ListInsightsService, request(t, http.MethodGet, "/profiles/x/insights", &alice, nil, vars))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[models.InsightsResponse](t, rr).Insights, 1)

	rr = serve(svc, DeleteProfileService, request(t, http.MethodDelete, "/profiles/x", &alice, nil, vars))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(svc, GetProfileService, request(t, http.MethodGet, "/profiles/x", &alice, nil, vars))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	body := decode[models.Response](t, rr)
	assert.Equal(t, "data", body.ErrorCode)
	assert.True(t, strings.HasPrefix(body.ErrorDetails, "Data error"))
}

func TestUpdateProfileCannotRemoveOtherProfilesInsights(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	adaProfile, err := store.CreateProfile(ctx, models.Profile{FirstName: "Ada", LastName: "Lovelace", Owner: "alice"})
	require.NoError(t, err)
	note, err := store.CreateInsight(ctx, models.Insight{Text: "met at conference", ProfileID: adaProfile.ID, Owner: "alice"})
	require.NoError(t, err)

	bobProfile, err := store.CreateProfile(ctx, models.Profile{FirstName: "Charles", LastName: "Babbage", Owner: "bob"})
	require.NoError(t, err)

	rr := serve(svc, UpdateProfileService, request(t, http.MethodPut, "/profiles/x", &bob, UpdateProfileRequest{
		Profile:          models.ProfileInput{FirstName: "Charles", LastName: "Babbage"},
		InsightsToRemove: []uuid.UUID{note.ID},
	}, map[string]string{"profile-id": bobProfile.ID.String()}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	kept, err := store.GetInsight(ctx, note.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, adaProfile.ID, kept.ProfileID)
}

func TestInsightEndpoints(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	p, err := store.CreateProfile(ctx, models.Profile{FirstName: "Ada", LastName: "Lovelace", Owner: "alice"})
	require.NoError(t, err)
	vars := map[string]string{"profile-id": p.ID.String()}

	rr := serve(svc, CreateInsightService, request(t, http.MethodPost, "/profiles/x/insights", &alice,
		CreateInsightRequest{Text: "prefers email"}, vars))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	insight := decode[models.Insight](t, rr)

	rr = serve(svc, CreateInsightService, request(t, http.MethodPost, "/profiles/x/insights", &bob,
		CreateInsightRequest{Text: "sneaky"}, vars))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(svc, DeleteInsightService, request(t, http.MethodDelete, "/profiles/x/insights/y", &alice, nil,
		map[string]string{"profile-id": p.ID.String(), "insight-id": insight.ID.String()}))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(svc, DeleteInsightService, request(t, http.MethodDelete, "/profiles/x/insights/y", &alice, nil,
		map[string]string{"profile-id": p.ID.String(), "insight-id": insight.ID.String()}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGroupEndpoints(t *testing.T) {
	svc, _, _ := newService(t)

	for _, name := range []string{"Team", "Team", "Family"} {
		rr := serve(svc, CreateGroupService, request(t, http.MethodPost, "/groups", &alice, models.GroupInput{Name: name}, nil))
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := serve(svc, ListGroupsService, request(t, http.MethodGet, "/groups?limit=2", &alice, nil, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[models.GroupsResponse](t, rr)
	require.Len(t, page.Groups, 2)
	require.NotEmpty(t, page.NextToken)
	assert.Equal(t, "Team", page.Groups[1].Name)

	name := "Relatives"
	vars := map[string]string{"group-id": page.Groups[0].ID.String()}
	rr = serve(svc, PatchGroupService, request(t, http.MethodPatch, "/groups/x", &bob, models.GroupPatch{Name: &name}, vars))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(svc, PatchGroupService, request(t, http.MethodPatch, "/groups/x", &alice, models.GroupPatch{Name: &name}, vars))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Relatives", decode[models.Group](t, rr).Name)

	rr = serve(svc, DeleteGroupService, request(t, http.MethodDelete, "/groups/x", &alice, nil, vars))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(svc, ListGroupsService, request(t, http.MethodGet, "/groups?limit=zero", &alice, nil, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetPhotoURL(t *testing.T) {
	svc, _, ph := newService(t)
	key := "private/eu-west-2:alice/1.jpg"
	ph.On("SignedURL", mock.Anything, key).Return("https://bucket.s3.test/signed", nil)

	rr := serve(svc, GetPhotoURLService, request(t, http.MethodGet, "/photos/url?key="+url.QueryEscape(key), &alice, nil, nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "https://bucket.s3.test/signed", decode[PhotoURLResponse](t, rr).URL)

	rr = serve(svc, GetPhotoURLService, request(t, http.MethodGet, "/photos/url?key="+url.QueryEscape(key), &bob, nil, nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(svc, GetPhotoURLService, request(t, http.MethodGet, "/photos/url", &alice, nil, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
