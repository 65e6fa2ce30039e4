package services

import (
	"encoding/json"
	"net/http"

	"github.com/rolodex-app/directory-services/models"
	"github.com/rs/zerolog"
)

type CreateInsightRequest struct {
	Text string `json:"text"`
}

func ListInsightsService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	claims, ok := claimsFrom(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	profileID, err := pathID(r, "profile-id")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	if _, err := svc.ownedProfile(r.Context(), profileID, claims.Subject); err != nil {
		writeError(w, logger, err)
		return
	}

	insights, err := svc.insights(profileID).ListInsights(r.Context())
	if err != nil {
		writeError(w, logger, err)
		return
	}
	if insights == nil {
		insights = []models.Insight{}
	}

	WriteResponse(w, http.StatusOK, models.InsightsResponse{Insights: insights})
}

func CreateInsightService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	claims, ok := claimsFrom(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	profileID, err := pathID(r, "profile-id")
	if err != nil {
		writeError(w, logger, err)
		return
	}

	var req CreateInsightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, logger, invalid("invalid request payload"))
		return
	}

	if _, err := svc.ownedProfile(r.Context(), profileID, claims.Subject); err != nil {
		writeError(w, logger, err)
		return
	}

	insight, err := svc.insights(profileID).CreateInsight(r.Context(), req.Text)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	WriteResponse(w, http.StatusCreated, insight)
}

func DeleteInsightService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	claims, ok := claimsFrom(r)
	if !ok {
		logger.Warn().Msg("Unauthorized request: missing claims")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	profileID, err := pathID(r, "profile-id")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	insightID, err := pathID(r, "insight-id")
	if err != nil {
		writeError(w, logger, err)
		return
	}

	if _, err := svc.ownedProfile(r.Context(), profileID, claims.Subject); err != nil {
		writeError(w, logger, err)
		return
	}

	if err := svc.insights(profileID).DeleteInsight(r.Context(), insightID); err != nil {
		writeError(w, logger, err)
		return
	}

	WriteResponse(w, http.StatusNoContent, nil)
}
