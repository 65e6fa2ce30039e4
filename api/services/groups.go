package services

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rolodex-app/directory-services/models"
	"github.com/rs/zerolog"
)

// ListGroupsService returns a page of the caller's groups.
func ListGroupsService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	claims, ok := claimsFrom(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	opts, err := listOptions(r)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	filter := models.Eq("owner", claims.Subject)
	if t := r.URL.Query().Get("type"); t != "" {
		filter = models.And(filter, models.Eq("type", t))
	}
	opts.Filter = filter

	groups, token, err := svc.groups().ListGroups(r.Context(), opts)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	logger.Info().Int("group_count", len(groups)).Msg("Successfully retrieved groups")
	WriteResponse(w, http.StatusOK, models.GroupsResponse{Groups: groups, NextToken: token})
}

func CreateGroupService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	var input models.GroupInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		logger.Warn().Err(err).Msg("Invalid request payload")
		writeError(w, logger, invalid("invalid request payload"))
		return
	}

	group, err := svc.groups().CreateGroup(r.Context(), input)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	logger.Info().Str("group_id", group.ID.String()).Msg("Successfully created group")
	WriteResponse(w, http.StatusCreated, group, fmt.Sprintf("%s/groups/%s", basePath(svc), group.ID))
}

// PatchGroupService applies a partial update to one of the caller's groups.
func PatchGroupService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	claims, ok := claimsFrom(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	id, err := pathID(r, "group-id")
	if err != nil {
		writeError(w, logger, err)
		return
	}

	var patch models.GroupPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, logger, invalid("invalid request payload"))
		return
	}

	if _, err := svc.ownedGroup(r.Context(), id, claims.Subject); err != nil {
		writeError(w, logger, err)
		return
	}

	group, err := svc.groups().UpdateGroup(r.Context(), id, patch)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	WriteResponse(w, http.StatusOK, group)
}

func DeleteGroupService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	claims, ok := claimsFrom(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	id, err := pathID(r, "group-id")
	if err != nil {
		writeError(w, logger, err)
		return
	}

	if _, err := svc.ownedGroup(r.Context(), id, claims.Subject); err != nil {
		writeError(w, logger, err)
		return
	}

	if err := svc.groups().DeleteGroup(r.Context(), id); err != nil {
		writeError(w, logger, err)
		return
	}

	logger.Info().Str("group_id", id.String()).Msg("Successfully deleted group")
	WriteResponse(w, http.StatusNoContent, nil)
}
