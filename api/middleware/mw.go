package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rolodex-app/directory-services/internal/authn"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type tokenKey string

const TokenKey tokenKey = "token"

// JWTMiddleware parses the JWT token and adds claims to the request context.
func JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context()).With().
				Str("handler", "JWTMiddleware").Logger()

			// Get the Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug().Msg("authorization header missing")
				http.Error(w, "authorization header missing",
					http.StatusUnauthorized)
				return
			}

			// Check the Authorization header format
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				logger.Error().Msg("invalid token format")
				http.Error(w, "invalid token format", http.StatusUnauthorized)
				return
			}

			// Parse the token for JWT claims
			claims, err := authn.ParseClaims(token)

			if err != nil {
				logger.Error().Err(err).Msg("invalid bearer jwt token")
				http.Error(w, "invalid bearer jwt token", http.StatusUnauthorized)
				return
			}

			// Records are owned by the subject, so a token without one is useless
			if claims.Subject == "" {
				logger.Warn().Msg("jwt token has no subject")
				http.Error(w, "jwt token has no subject", http.StatusUnauthorized)
				return
			}

			// Add the token and claims to the context
			ctx := context.WithValue(r.Context(), TokenKey, token)
			ctx = authn.WithClaims(ctx, claims)

			logger.Debug().Str("user", claims.Subject).Msg("request authenticated")
			next.ServeHTTP(w, r.WithContext(ctx))
		},
	)
}

const RequestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// WithLogger adds a logger tagged with a request id to the context and logs
// the outcome of every request.
func WithLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			logger := log.With().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("url", r.URL.String()).
				Str("remote_addr", r.RemoteAddr).
				Logger()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// Add the logger to the context
			next.ServeHTTP(rec, r.WithContext(logger.WithContext(r.Context())))

			level := zerolog.InfoLevel
			if rec.status >= http.StatusInternalServerError {
				level = zerolog.ErrorLevel
			}
			logger.WithLevel(level).Int("status", rec.status).Dur("duration", time.Since(start)).Msg("request handled")
		},
	)
}
