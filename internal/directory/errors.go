package directory

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/smithy-go"
	"github.com/lib/pq"
	"github.com/rolodex-app/directory-services/internal/authn"
	"github.com/rolodex-app/directory-services/internal/photos"
	"github.com/rolodex-app/directory-services/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = models.ErrNotFound
	// ErrCreate is returned when the base row of a create could not be inserted.
	ErrCreate = errors.New("failed to create record")
)

type Category string

const (
	CategoryData    Category = "data"
	CategoryAuth    Category = "auth"
	CategoryStorage Category = "storage"
	CategoryNetwork Category = "network"
	CategoryUnknown Category = "unknown"
)

// Classify maps an error to the backend category it came from.
func Classify(err error) Category {
	var pqErr *pq.Error
	var apiErr smithy.APIError
	var netErr net.Error

	switch {
	case err == nil:
		return ""
	case errors.Is(err, authn.ErrAuthRequired), errors.Is(err, photos.ErrCredentialsIssue):
		return CategoryAuth
	case errors.Is(err, photos.ErrUnsupportedFormat), errors.Is(err, photos.ErrUploadFailure):
		return CategoryStorage
	case errors.Is(err, models.ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrCreate),
		errors.As(err, &pqErr):
		return CategoryData
	case errors.As(err, &apiErr):
		return CategoryStorage
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return CategoryNetwork
	}
	return CategoryUnknown
}

// FormatError renders err as a message suitable for showing to a user.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var pqErr *pq.Error
	var apiErr smithy.APIError

	switch Classify(err) {
	case CategoryAuth:
		if errors.Is(err, photos.ErrCredentialsIssue) {
			return "Authentication error: your storage credentials have expired, please sign in again"
		}
		return "Authentication error: please sign in and try again"
	case CategoryStorage:
		if errors.As(err, &apiErr) {
			return fmt.Sprintf("Storage error: %s (%s)", apiErr.ErrorMessage(), apiErr.ErrorCode())
		}
		return "Storage error: " + err.Error()
	case CategoryData:
		if errors.As(err, &pqErr) {
			return fmt.Sprintf("Data error: %s (%s)", pqErr.Message, pqErr.Code.Name())
		}
		return "Data error: " + err.Error()
	case CategoryNetwork:
		return "Network error: the service could not be reached, check your connection"
	}
	return "Unexpected error: " + err.Error()
}

// ErrorState receives the readable message of every failed operation.
type ErrorState func(message string)

// Reporter logs failed operations and forwards them to OnError.
type Reporter struct {
	Log     *zerolog.Logger
	OnError ErrorState
}

func (r Reporter) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	if r.Log != nil {
		return r.Log
	}
	return &log.Logger
}

func (r Reporter) fail(ctx context.Context, op string, err error) error {
	r.logger(ctx).Error().Err(err).Str("op", op).Str("error_type", string(Classify(err))).
		Msg("Directory operation failed")
	if r.OnError != nil {
		r.OnError(FormatError(err))
	}
	return err
}

// warn logs a failed best-effort step without failing the operation.
func (r Reporter) warn(ctx context.Context, op string, err error) {
	r.logger(ctx).Warn().Err(err).Str("op", op).Msg("Best-effort cleanup step failed")
}
