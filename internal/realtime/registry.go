// Package realtime pushes each connected client's profile list over
// socket.io as it changes.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rolodex-app/directory-services/internal/authn"
	"github.com/rolodex-app/directory-services/internal/directory"
	"github.com/rs/zerolog"
)

const (
	EventSubscribe = "subscribe"
	EventRefetch   = "refetch"
	EventProfiles  = "profiles"
	// EventFailed carries a readable message; "error" is reserved by socket.io.
	EventFailed = "directoryError"
)

// Emitter is the send side of a client connection.
type Emitter interface {
	Emit(event string, v ...interface{})
}

// CacheFactory builds the profile list cache for one authenticated caller.
type CacheFactory func(claims authn.Claims) *directory.ProfileListCache

type subscription struct {
	cache  *directory.ProfileListCache
	cancel context.CancelFunc
	done   chan struct{}
}

// Registry runs one profile list cache per subscribed connection.
type Registry struct {
	NewCache CacheFactory

	mu   sync.Mutex
	subs map[string]*subscription
}

func NewRegistry(factory CacheFactory) *Registry {
	return &Registry{NewCache: factory, subs: make(map[string]*subscription)}
}

// Subscribe authenticates token and starts streaming the caller's profile
// list to out. A connection that subscribes again replaces its previous list.
func (r *Registry) Subscribe(ctx context.Context, connID, token string, out Emitter) error {
	logger := zerolog.Ctx(ctx).With().Str("conn_id", connID).Logger()

	claims, err := authn.ParseClaims(token)
	if err != nil {
		return fmt.Errorf("%w: %w", authn.ErrAuthRequired, err)
	}
	if claims.Subject == "" {
		return authn.ErrAuthRequired
	}

	cache := r.NewCache(claims)
	cache.OnChange = func(st directory.CacheState) {
		out.Emit(EventProfiles, st)
	}

	r.Drop(connID)

	ctx, cancel := context.WithCancel(logger.WithContext(ctx))
	sub := &subscription{cache: cache, cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	r.subs[connID] = sub
	r.mu.Unlock()

	go func() {
		defer close(sub.done)
		if err := cache.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Msg("Profile list stopped")
			out.Emit(EventFailed, directory.FormatError(err))
		}
	}()

	logger.Info().Str("user", claims.Subject).Msg("Client subscribed to profile list")
	return nil
}

// Refetch forces a fresh fetch for the connection. It reports false if the
// connection has no subscription.
func (r *Registry) Refetch(connID string) bool {
	r.mu.Lock()
	sub, ok := r.subs[connID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	sub.cache.Refetch()
	return true
}

// Drop stops the connection's list and waits for it to wind down.
func (r *Registry) Drop(connID string) {
	r.mu.Lock()
	sub, ok := r.subs[connID]
	delete(r.subs, connID)
	r.mu.Unlock()
	if !ok {
		return
	}
	sub.cancel()
	<-sub.done
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Close drops every connection.
func (r *Registry) Close() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Drop(id)
	}
}
