package directory

import (
	"context"
	"sync"

	"github.com/rolodex-app/directory-services/internal/events"
	"github.com/rolodex-app/directory-services/models"
)

// Snapshot is the result set of an observed query. IsSynced is false when
// the listing could not be refreshed and Items are the last known rows.
type Snapshot struct {
	Items    []models.Profile
	IsSynced bool
}

type ObserveOptions struct {
	// Owner restricts both the listing and the change events considered.
	Owner string
	Limit int
}

// Subscription is a running observed query.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Unsubscribe stops the query and waits for its goroutine to exit. It must
// not be called from inside the snapshot callback.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// ObserveProfiles lists profiles once and again after every change that can
// alter the owner's list, delivering each listing to fn. Events that arrive
// while a listing runs are folded into the next one.
func ObserveProfiles(ctx context.Context, store ProfileStore, listener events.Listener, opts ObserveOptions,
	fn func(Snapshot)) *Subscription {

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	// Subscribe before the first listing so no change falls between the two.
	msgs, stop := listener.Listen(events.ChannelChanges)

	filter := models.Filter{}
	if opts.Owner != "" {
		filter = models.Eq("owner", opts.Owner)
	}
	logger := Reporter{}.logger(ctx)

	var last []models.Profile
	snapshot := func() {
		items, _, err := store.ListProfiles(ctx, models.ListOptions{Limit: opts.Limit, Filter: filter})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn().Err(err).Str("owner", opts.Owner).Msg("Observed profile listing failed")
			fn(Snapshot{Items: last, IsSynced: false})
			return
		}
		last = items
		fn(Snapshot{Items: items, IsSynced: true})
	}

	go func() {
		defer close(sub.done)
		defer stop()

		snapshot()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				if !relevant(msg, opts.Owner) {
					continue
				}
				if !drain(msgs) {
					return
				}
				snapshot()
			}
		}
	}()

	return sub
}

func relevant(msg events.Message, owner string) bool {
	event, ok := msg.Data.(events.ChangeEvent)
	if !ok {
		return false
	}
	if owner != "" && event.Owner != owner {
		return false
	}
	switch event.Entity {
	case events.EntityProfile, events.EntityProfileGroup, events.EntityGroup:
		return true
	}
	return false
}

// drain discards queued messages. It reports false if the channel closed.
func drain(msgs <-chan events.Message) bool {
	for {
		select {
		case _, ok := <-msgs:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}
