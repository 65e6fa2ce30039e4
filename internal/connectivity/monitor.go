// Package connectivity watches the backend and reports online/offline
// transitions on the hub's datastore channel.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/rolodex-app/directory-services/internal/events"
	"github.com/rs/zerolog"
)

const (
	DefaultInterval = 10 * time.Second
	pingTimeout     = 5 * time.Second
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Dispatcher interface {
	Dispatch(channel, event string, data interface{})
}

// Monitor pings the backend on an interval. The first result and every
// change after it are dispatched as a networkStatus event.
type Monitor struct {
	Pinger   Pinger
	Hub      Dispatcher
	Interval time.Duration

	mu     sync.Mutex
	known  bool
	online bool
}

func NewMonitor(pinger Pinger, hub Dispatcher, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{Pinger: pinger, Hub: hub, Interval: interval}
}

// Online reports the last observed status and whether one was observed yet.
func (m *Monitor) Online() (online, known bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online, m.known
}

// Check pings once and reports whether the backend answered.
func (m *Monitor) Check(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	err := m.Pinger.Ping(pingCtx)
	online := err == nil

	m.mu.Lock()
	changed := !m.known || m.online != online
	m.known = true
	m.online = online
	m.mu.Unlock()

	if !changed {
		return online
	}

	logger := zerolog.Ctx(ctx)
	if online {
		logger.Info().Msg("Backend reachable")
	} else {
		logger.Warn().Err(err).Msg("Backend unreachable")
	}
	m.Hub.Dispatch(events.ChannelDatastore, events.EventNetworkStatus, events.NetworkStatus{Online: online})
	return online
}

// Run checks immediately and then every Interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
