package realtime

import (
	"context"

	socketio "github.com/googollee/go-socket.io"
	"github.com/rolodex-app/directory-services/internal/directory"
	"github.com/rs/zerolog"
)

// NewServer wires the registry to socket.io events on the root namespace.
// Handlers run with ctx as their base context. The caller owns Serve and
// Close.
func NewServer(ctx context.Context, reg *Registry) *socketio.Server {
	logger := zerolog.Ctx(ctx)
	server := socketio.NewServer(nil)

	server.OnConnect("/", func(s socketio.Conn) error {
		logger.Debug().Str("conn_id", s.ID()).Str("remote_addr", s.RemoteAddr().String()).Msg("Socket connected")
		return nil
	})

	server.OnEvent("/", EventSubscribe, func(s socketio.Conn, token string) {
		if err := reg.Subscribe(ctx, s.ID(), token, s); err != nil {
			logger.Warn().Err(err).Str("conn_id", s.ID()).Msg("Rejected subscription")
			s.Emit(EventFailed, directory.FormatError(err))
		}
	})

	server.OnEvent("/", EventRefetch, func(s socketio.Conn) {
		if !reg.Refetch(s.ID()) {
			s.Emit(EventFailed, "Not subscribed")
		}
	})

	server.OnError("/", func(s socketio.Conn, err error) {
		event := logger.Error().Err(err)
		if s != nil {
			event = event.Str("conn_id", s.ID())
		}
		event.Msg("Socket error")
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		reg.Drop(s.ID())
		logger.Debug().Str("conn_id", s.ID()).Str("reason", reason).Msg("Socket disconnected")
	})

	return server
}
