package connectivity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rolodex-app/directory-services/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type togglePinger struct {
	mu  sync.Mutex
	err error
}

func (p *togglePinger) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *togglePinger) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func statuses(ch <-chan events.Message) []bool {
	var out []bool
	for {
		select {
		case msg := <-ch:
			out = append(out, msg.Data.(events.NetworkStatus).Online)
		default:
			return out
		}
	}
}

func TestCheckDispatchesTransitionsOnly(t *testing.T) {
	hub := events.NewHub()
	msgs, stop := hub.Listen(events.ChannelDatastore)
	defer stop()

	pinger := &togglePinger{}
	m := NewMonitor(pinger, hub, time.Hour)
	ctx := context.Background()

	_, known := m.Online()
	assert.False(t, known)

	assert.True(t, m.Check(ctx))
	assert.True(t, m.Check(ctx))
	pinger.set(errors.New("connection refused"))
	assert.False(t, m.Check(ctx))
	assert.False(t, m.Check(ctx))
	pinger.set(nil)
	assert.True(t, m.Check(ctx))

	assert.Equal(t, []bool{true, false, true}, statuses(msgs))
	online, known := m.Online()
	assert.True(t, online)
	assert.True(t, known)
}

func TestRunStopsOnCancel(t *testing.T) {
	hub := events.NewHub()
	msgs, stop := hub.Listen(events.ChannelDatastore)
	defer stop()

	m := NewMonitor(&togglePinger{}, hub, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case msg := <-msgs:
		assert.Equal(t, events.EventNetworkStatus, msg.Event)
	case <-time.After(time.Second):
		t.Fatal("no status dispatched")
	}

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
