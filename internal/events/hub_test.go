package events

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDispatchToChannelListeners(t *testing.T) {
	hub := NewHub()

	changes, stopChanges := hub.Listen(ChannelChanges)
	defer stopChanges()
	status, stopStatus := hub.Listen(ChannelDatastore)
	defer stopStatus()

	hub.Dispatch(ChannelDatastore, EventNetworkStatus, NetworkStatus{Online: true})

	select {
	case msg := <-status:
		assert.Equal(t, EventNetworkStatus, msg.Event)
		assert.Equal(t, NetworkStatus{Online: true}, msg.Data)
	case <-time.After(time.Second):
		t.Fatal("expected a networkStatus message")
	}

	select {
	case msg := <-changes:
		t.Fatalf("unexpected message on changes channel: %+v", msg)
	default:
	}
}

func TestHubDropsWhenListenerIsFull(t *testing.T) {
	hub := NewHub()
	ch, stop := hub.Listen(ChannelChanges)
	defer stop()

	for i := 0; i < hub.buffer*3; i++ {
		hub.Dispatch(ChannelChanges, EventChange, i)
	}

	assert.Len(t, ch, hub.buffer)
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	ch, stop := hub.Listen(ChannelChanges)

	stop()
	stop()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")

	// Dispatching after unsubscribe must not panic.
	hub.Dispatch(ChannelChanges, EventChange, nil)
}

type fakeSource struct {
	events []ChangeEvent
	err    error
}

func (f *fakeSource) Next(ctx context.Context) (ChangeEvent, error) {
	if len(f.events) == 0 {
		<-ctx.Done()
		return ChangeEvent{}, ctx.Err()
	}
	e := f.events[0]
	f.events = f.events[1:]
	return e, f.err
}

func TestRelayForwardsChanges(t *testing.T) {
	hub := NewHub()
	ch, stop := hub.Listen(ChannelChanges)
	defer stop()

	event := ChangeEvent{Entity: EntityProfile, Action: ActionCreate, ID: uuid.New(), Owner: "user-1"}
	src := &fakeSource{events: []ChangeEvent{event}}
	logger := zerolog.New(os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Relay(ctx, src, hub, &logger) }()

	select {
	case msg := <-ch:
		assert.Equal(t, event, msg.Data)
	case <-time.After(time.Second):
		t.Fatal("relay did not forward the event")
	}

	cancel()
	err := <-done
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
