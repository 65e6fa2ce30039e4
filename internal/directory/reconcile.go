package directory

import (
	"context"

	"github.com/rolodex-app/directory-services/internal/photos"
	"github.com/rolodex-app/directory-services/models"
	"github.com/rs/zerolog"
)

// ReconcilePhotoURLs rewrites every stored photoUrl that no longer matches the
// URL derived from its photoKey, across all owners. It returns the number of
// profiles that diverged. With dryRun nothing is written.
func ReconcilePhotoURLs(ctx context.Context, store ProfileStore, cdn photos.CDN, dryRun bool) (int, error) {
	logger := zerolog.Ctx(ctx)

	profiles, err := listAll(ctx, store.ListProfiles, models.Filter{})
	if err != nil {
		return 0, err
	}

	diverged := 0
	for _, p := range profiles {
		want := cdn.URL(p.PhotoKey)
		if p.PhotoURL == want {
			continue
		}
		diverged++

		event := logger.Info().Str("profile_id", p.ID.String()).Str("from", p.PhotoURL).Str("to", want)
		if dryRun {
			event.Msg("Photo URL diverged")
			continue
		}

		p.PhotoURL = want
		if _, err := store.UpdateProfile(ctx, p); err != nil {
			return diverged, err
		}
		event.Msg("Photo URL reconciled")
	}
	return diverged, nil
}
