package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"github.com/rolodex-app/directory-services/internal/authn"
	"github.com/rolodex-app/directory-services/internal/directory"
	"github.com/rolodex-app/directory-services/internal/photos"
	"github.com/rolodex-app/directory-services/models"
	"github.com/rs/zerolog"
)

var errForbidden = errors.New("forbidden: record belongs to another user")

func WriteResponse(w http.ResponseWriter, statusCode int, response interface{}, location ...string) {

	w.Header().Set("Content-Type", "application/json")

	// We don't want to cache API responses so the client receives most curent data
	w.Header().Set("Cache-Control", "max-age=0")

	// Conditionally set the Location header if provided
	if len(location) > 0 && location[0] != "" {
		w.Header().Set("Location", location[0])
	}

	w.WriteHeader(statusCode)

	if response != nil {
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			return // **Return immediately to avoid multiple WriteHeader calls**
		}
	}
}

// HandleErrResponse writes err as a failed models.Response. Database errors
// carry their PostgreSQL code name.
func HandleErrResponse(w http.ResponseWriter, statusCode int, err error) {
	var pqErr *pq.Error

	response := models.ErrorResponse(string(directory.Classify(err)), directory.FormatError(err))
	if errors.As(err, &pqErr) {
		response.ErrorCode = pqErr.Code.Name()
	}
	if errors.Is(err, errForbidden) {
		response = models.ErrorResponse(string(directory.CategoryAuth), err.Error())
	}

	WriteResponse(w, statusCode, response)
}

// StatusFor maps an error to the HTTP status it is reported with.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, photos.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, authn.ErrAuthRequired), errors.Is(err, photos.ErrCredentialsIssue):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, directory.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		logger.Warn().Err(err).Int("status", status).Msg("Request rejected")
	}
	HandleErrResponse(w, status, err)
}

func claimsFrom(r *http.Request) (authn.Claims, bool) {
	claims, ok := authn.ClaimsFrom(r.Context())
	if !ok || claims.Subject == "" {
		return claims, false
	}
	return claims, true
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, invalid("invalid " + name)
	}
	return id, nil
}

// listOptions reads ?limit= and ?nextToken= from the query.
func listOptions(r *http.Request) (models.ListOptions, error) {
	opts := models.ListOptions{PagingToken: r.URL.Query().Get("nextToken")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return opts, invalid("limit must be a positive integer")
		}
		opts.Limit = limit
	}
	return opts, nil
}

func invalid(msg string) error {
	return &requestError{msg: msg}
}

// requestError is a malformed request, reported like any validation failure.
type requestError struct{ msg string }

func (e *requestError) Error() string { return models.ErrValidation.Error() + ": " + e.msg }
func (e *requestError) Unwrap() error { return models.ErrValidation }
