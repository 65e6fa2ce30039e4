package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/rolodex-app/directory-services/internal/authn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims authn.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestJWTMiddleware_ValidToken_ClaimsPopulated(t *testing.T) {
	token := signed(t, authn.Claims{
		StandardClaims: jwt.StandardClaims{Subject: "user-1"},
		Username:       "ada",
		IdentityID:     "eu-west-2:abc",
	})

	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		claims, ok := authn.ClaimsFrom(r.Context())
		require.True(t, ok)
		assert.Equal(t, "user-1", claims.Subject)
		assert.Equal(t, "eu-west-2:abc", claims.IdentityID)
		assert.Equal(t, token, r.Context().Value(TokenKey))
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/profiles", nil)
	req.Header.Add("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	JWTMiddleware(next).ServeHTTP(w, req)

	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTMiddleware_Rejects(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should have been rejected")
	})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"invalid token", "Bearer invalid-token"},
		{"no subject", "Bearer " + signed(t, authn.Claims{Username: "ada"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/profiles", nil)
			if tt.header != "" {
				req.Header.Add("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			JWTMiddleware(next).ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestWithLogger(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEqual(t, zerolog.Disabled, zerolog.Ctx(r.Context()).GetLevel())
	})

	WithLogger(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestWithLoggerRequestID(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	WithLogger(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rr = httptest.NewRecorder()
	WithLogger(next).ServeHTTP(rr, req)
	assert.Equal(t, "req-42", rr.Header().Get(RequestIDHeader))
}
