package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rolodex-app/directory-services/api/services"
	"github.com/rs/zerolog"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status string `json:"status"`
}

// Health reports whether the backing store answers a ping.
func Health(p Pinger) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Health check failed")
			services.WriteResponse(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
		services.WriteResponse(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
