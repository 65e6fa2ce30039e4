package handlers

import (
	"net/http"

	"github.com/rolodex-app/directory-services/api/services"
)

func ListGroups(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.ListGroupsService(svc, w, r)
	}
}

func CreateGroup(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.CreateGroupService(svc, w, r)
	}
}

func PatchGroup(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.PatchGroupService(svc, w, r)
	}
}

func DeleteGroup(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.DeleteGroupService(svc, w, r)
	}
}
