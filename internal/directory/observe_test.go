package directory

import (
	"context"
	"testing"
	"time"

	"github.com/rolodex-app/directory-services/internal/events"
	"github.com/rolodex-app/directory-services/internal/memstore"
	"github.com/rolodex-app/directory-services/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
		return Snapshot{}
	}
}

func TestObserveProfiles(t *testing.T) {
	hub := events.NewHub()
	store := memstore.New(hub)
	ctx := context.Background()

	_, err := store.CreateProfile(ctx, models.Profile{FirstName: "Ada", LastName: "Lovelace", Owner: testOwner})
	require.NoError(t, err)

	snaps := make(chan Snapshot, 8)
	sub := ObserveProfiles(ctx, store, hub, ObserveOptions{Owner: testOwner, Limit: 100}, func(s Snapshot) {
		snaps <- s
	})
	defer sub.Unsubscribe()

	first := nextSnapshot(t, snaps)
	assert.True(t, first.IsSynced)
	assert.Len(t, first.Items, 1)

	_, err = store.CreateProfile(ctx, models.Profile{FirstName: "Grace", LastName: "Hopper", Owner: testOwner})
	require.NoError(t, err)

	second := nextSnapshot(t, snaps)
	assert.Len(t, second.Items, 2)

	// Changes of another owner do not trigger a listing.
	_, err = store.CreateProfile(ctx, models.Profile{FirstName: "Alan", LastName: "Turing", Owner: "user-2"})
	require.NoError(t, err)
	select {
	case s := <-snaps:
		t.Fatalf("unexpected snapshot with %d items", len(s.Items))
	case <-time.After(100 * time.Millisecond):
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
}

func TestObserveProfilesReportsUnsyncedListing(t *testing.T) {
	hub := events.NewHub()
	store := memstore.New(hub)
	store.Fail = failOn("ListProfiles")

	snaps := make(chan Snapshot, 8)
	sub := ObserveProfiles(context.Background(), store, hub, ObserveOptions{}, func(s Snapshot) { snaps <- s })
	defer sub.Unsubscribe()

	s := nextSnapshot(t, snaps)
	assert.False(t, s.IsSynced)
	assert.Empty(t, s.Items)
}

func TestRelevant(t *testing.T) {
	change := func(entity, owner string) events.Message {
		return events.Message{Channel: events.ChannelChanges, Event: events.EventChange,
			Data: events.ChangeEvent{Entity: entity, Owner: owner}}
	}

	assert.True(t, relevant(change(events.EntityProfile, "u"), "u"))
	assert.True(t, relevant(change(events.EntityProfileGroup, "u"), "u"))
	assert.True(t, relevant(change(events.EntityGroup, "u"), ""))
	assert.False(t, relevant(change(events.EntityInsight, "u"), "u"))
	assert.False(t, relevant(change(events.EntityProfile, "v"), "u"))
	assert.False(t, relevant(events.Message{Data: "noise"}, ""))
}
