package handlers

import (
	"net/http"

	"github.com/rolodex-app/directory-services/api/services"
)

func ListProfiles(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.ListProfilesService(svc, w, r)
	}
}

func CreateProfile(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.CreateProfileService(svc, w, r)
	}
}

func GetProfile(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.GetProfileService(svc, w, r)
	}
}

func UpdateProfile(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.UpdateProfileService(svc, w, r)
	}
}

func DeleteProfile(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.DeleteProfileService(svc, w, r)
	}
}

func ListInsights(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.ListInsightsService(svc, w, r)
	}
}

func CreateInsight(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.CreateInsightService(svc, w, r)
	}
}

func DeleteInsight(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.DeleteInsightService(svc, w, r)
	}
}
