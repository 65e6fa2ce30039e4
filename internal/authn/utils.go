package authn

import (
	"errors"

	"github.com/golang-jwt/jwt"
)

var ErrInvalidJWT = errors.New("invalid jwt token")
var ErrInvalidClaims = errors.New("invalid claims")

// Claims carries the two identities the directory cares about: the user id
// (sub), used as record owner, and the storage identity id used to scope
// private objects.
type Claims struct {
	jwt.StandardClaims
	Username   string `json:"preferred_username"`
	IdentityID string `json:"identity_id"`
}

func ParseClaims(token string) (Claims, error) {
	claims := Claims{}
	// Check if token is JWT by attempting to parse it
	if t, err := jwt.ParseWithClaims(token, &claims, nil); err != nil {
		// Ignore validation errors (no need to check signing of key)
		if _, ok := err.(*jwt.ValidationError); !ok {
			return claims, ErrInvalidJWT
		}

		// Check if token was decoded successfully
		if t == nil {
			return claims, ErrInvalidClaims
		}
	}
	return claims, nil
}
