package syncengine

import (
	"context"

	"projecthub-be/pkg/syncengine/wire"
)

// Conn is one live collaboration channel. Read returns a *CloseError once
// the peer closes, carrying the close code so the session machine can tell
// invalidation apart from a network drop.
type Conn interface {
	Read() (*wire.Message, error)
	Write(msg *wire.Message) error
	Close() error
}

// Transport dials collaboration channels. The production implementation is
// WebSocketTransport; tests substitute a fake.
type Transport interface {
	Dial(ctx context.Context, room RoomID) (Conn, error)
}
