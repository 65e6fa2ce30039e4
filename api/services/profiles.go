package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"

	"github.com/google/uuid"
	"github.com/rolodex-app/directory-services/internal/directory"
	"github.com/rolodex-app/directory-services/models"
	"github.com/rs/zerolog"
)

const maxUploadBytes = 10 << 20

type CreateProfileRequest struct {
	models.ProfileInput
	Insights []models.InsightInput `json:"insights"`
	Groups   []uuid.UUID           `json:"groups"`
}

type UpdateProfileRequest struct {
	Profile          models.ProfileInput   `json:"profile"`
	InsightsToAdd    []models.InsightInput `json:"insightsToAdd"`
	InsightsToRemove []uuid.UUID           `json:"insightsToRemove"`
	GroupsToAdd      []uuid.UUID           `json:"groupsToAdd"`
	GroupsToRemove   []uuid.UUID           `json:"groupsToRemove"`
}

// ListProfilesService returns the caller's live profiles with their groups.
func ListProfilesService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	profiles, err := svc.profiles().OwnedProfiles(r.Context())
	if err != nil {
		writeError(w, logger, err)
		return
	}

	logger.Info().Int("profile_count", len(profiles)).Msg("Successfully retrieved profiles")
	WriteResponse(w, http.StatusOK, models.ProfilesResponse{Profiles: profiles})
}

// CreateProfileService creates a profile from a JSON body or from a
// multipart form with a "profile" JSON part and an optional "photo" file.
func CreateProfileService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	claims, ok := claimsFrom(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	var req CreateProfileRequest
	photoFile, cleanup, err := svc.decodeProfileForm(r, "profile", &req)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	defer cleanup()

	if err := svc.checkGroups(r.Context(), claims.Subject, req.Groups); err != nil {
		writeError(w, logger, err)
		return
	}

	profile, err := svc.profiles().CreateProfile(r.Context(), req.ProfileInput, photoFile, req.Insights, req.Groups)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	logger.Info().Str("profile_id", profile.ID.String()).Msg("Successfully created profile")
	WriteResponse(w, http.StatusCreated, profile, fmt.Sprintf("%s/profiles/%s", basePath(svc), profile.ID))
}

// GetProfileService returns one profile; ?relations=true adds its insights
// and groups.
func GetProfileService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	claims, ok := claimsFrom(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	id, err := pathID(r, "profile-id")
	if err != nil {
		writeError(w, logger, err)
		return
	}

	details, err := svc.profiles().GetProfile(r.Context(), id, r.URL.Query().Get("relations") == "true")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	if details.Profile.Owner != claims.Subject {
		writeError(w, logger, errForbidden)
		return
	}

	WriteResponse(w, http.StatusOK, details)
}

// UpdateProfileService rewrites a profile from a JSON body or from a
// multipart form with a "changes" JSON part and an optional "photo" file.
func UpdateProfileService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	claims, ok := claimsFrom(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	id, err := pathID(r, "profile-id")
	if err != nil {
		writeError(w, logger, err)
		return
	}

	var req UpdateProfileRequest
	photoFile, cleanup, err := svc.decodeProfileForm(r, "changes", &req)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	defer cleanup()

	if _, err := svc.ownedProfile(r.Context(), id, claims.Subject); err != nil {
		writeError(w, logger, err)
		return
	}
	if err := svc.checkGroups(r.Context(), claims.Subject, req.GroupsToAdd); err != nil {
		writeError(w, logger, err)
		return
	}

	profile, err := svc.profiles().UpdateProfile(r.Context(), id, directory.ProfileChanges{
		Input:            req.Profile,
		PhotoFile:        photoFile,
		InsightsToAdd:    req.InsightsToAdd,
		InsightsToRemove: req.InsightsToRemove,
		GroupsToAdd:      req.GroupsToAdd,
		GroupsToRemove:   req.GroupsToRemove,
	})
	if err != nil {
		writeError(w, logger, err)
		return
	}

	logger.Info().Str("profile_id", id.String()).Msg("Successfully updated profile")
	WriteResponse(w, http.StatusOK, profile)
}

func DeleteProfileService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	claims, ok := claimsFrom(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	id, err := pathID(r, "profile-id")
	if err != nil {
		writeError(w, logger, err)
		return
	}

	if _, err := svc.ownedProfile(r.Context(), id, claims.Subject); err != nil {
		writeError(w, logger, err)
		return
	}

	if err := svc.profiles().DeleteProfile(r.Context(), id); err != nil {
		writeError(w, logger, err)
		return
	}

	logger.Info().Str("profile_id", id.String()).Msg("Successfully deleted profile")
	WriteResponse(w, http.StatusNoContent, nil)
}

// decodeProfileForm decodes the JSON request into dst. For multipart requests
// the JSON is read from the named part and an attached photo is spooled to a
// temporary file, returned as a file:// URI. cleanup removes that file.
func (svc *Service) decodeProfileForm(r *http.Request, part string, dst interface{}) (string, func(), error) {
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return "", noop, invalid("invalid request payload")
		}
		return "", noop, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", noop, invalid("invalid multipart form")
	}
	if err := json.Unmarshal([]byte(r.FormValue(part)), dst); err != nil {
		return "", noop, invalid(fmt.Sprintf("invalid %s part", part))
	}

	file, _, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return "", noop, nil
	}
	if err != nil {
		return "", noop, invalid("invalid photo part")
	}
	defer file.Close()

	tmp, err := os.CreateTemp(svc.TempDir, "photo-*.jpg")
	if err != nil {
		return "", noop, fmt.Errorf("error spooling photo: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		cleanup()
		return "", noop, fmt.Errorf("error spooling photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("error spooling photo: %w", err)
	}

	return (&url.URL{Scheme: "file", Path: tmp.Name()}).String(), cleanup, nil
}

func basePath(svc *Service) string {
	if svc.Config == nil {
		return ""
	}
	return svc.Config.BasePath
}
