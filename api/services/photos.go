package services

import (
	"net/http"
	"strings"
	"time"

	"github.com/rolodex-app/directory-services/internal/photos"
	"github.com/rs/zerolog"
)

type PhotoURLResponse struct {
	Key     string `json:"key"`
	URL     string `json:"url"`
	Expires string `json:"expires"`
}

// GetPhotoURLService returns a signed read URL for one of the caller's own
// photos.
func GetPhotoURLService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	claims, ok := claimsFrom(r)
	if !ok || claims.IdentityID == "" {
		logger.Warn().Msg("Unauthorized request: missing identity")
		WriteResponse(w, http.StatusUnauthorized, nil)
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, logger, invalid("key is required"))
		return
	}
	if !strings.HasPrefix(key, photos.StorageKey("", claims.IdentityID)) {
		writeError(w, logger, errForbidden)
		return
	}

	signed, err := svc.Photos.SignedURL(r.Context(), key)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	WriteResponse(w, http.StatusOK, PhotoURLResponse{
		Key:     key,
		URL:     signed,
		Expires: time.Now().Add(photos.SignedURLExpiry).UTC().Format(time.RFC3339),
	})
}
