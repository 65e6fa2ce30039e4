package authn

import (
	"context"
	"errors"
)

// ErrAuthRequired is returned when no authenticated identity is available.
var ErrAuthRequired = errors.New("authentication required")

type claimsKey struct{}

// WithClaims returns a copy of ctx carrying the caller's claims.
func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFrom returns the claims stored by WithClaims.
func ClaimsFrom(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(Claims)
	return claims, ok
}

// Session answers who the current caller is.
type Session interface {
	// CurrentUser returns the user id used as record owner.
	CurrentUser(ctx context.Context) (string, error)
	// IdentityID returns the identity used to scope private storage objects.
	IdentityID(ctx context.Context) (string, error)
}

// ContextSession reads the caller from claims placed on the request context.
type ContextSession struct{}

func (ContextSession) CurrentUser(ctx context.Context) (string, error) {
	claims, ok := ClaimsFrom(ctx)
	if !ok || claims.Subject == "" {
		return "", ErrAuthRequired
	}
	return claims.Subject, nil
}

func (ContextSession) IdentityID(ctx context.Context) (string, error) {
	claims, ok := ClaimsFrom(ctx)
	if !ok || claims.IdentityID == "" {
		return "", ErrAuthRequired
	}
	return claims.IdentityID, nil
}

// StaticSession always answers with the same identity. Used by background
// commands acting on behalf of a single owner.
type StaticSession struct {
	UserID   string
	Identity string
}

func (s StaticSession) CurrentUser(context.Context) (string, error) {
	if s.UserID == "" {
		return "", ErrAuthRequired
	}
	return s.UserID, nil
}

func (s StaticSession) IdentityID(context.Context) (string, error) {
	if s.Identity == "" {
		return "", ErrAuthRequired
	}
	return s.Identity, nil
}
