package syncengine

import (
	"errors"
	"fmt"

	"projecthub-be/pkg/syncengine/wire"
)

var (
	// ErrSessionClosed is returned by operations on a torn-down session.
	ErrSessionClosed = errors.New("sync session closed")

	// ErrRehydrationFailed marks a room whose authoritative content could not
	// be fetched after an invalidation. The cache for that room is gone and
	// the content is in an unknown state; this is not a transient disconnect.
	ErrRehydrationFailed = errors.New("rehydration failed")

	// ErrInvalidated rejects local edits made while an invalidation is being
	// handled. The pending buffer for the room was already surfaced as a
	// conflict; accepting more input there would lose it without signal.
	ErrInvalidated = errors.New("session invalidated, awaiting rehydration")

	// ErrUnknownRoom means the room names a document that does not exist.
	ErrUnknownRoom = errors.New("unknown room")
)

// CloseError is a typed socket close so every close-code path is one
// enumerated transition instead of nested callback branching.
type CloseError struct {
	Code int
	Text string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("connection closed (%d): %s", e.Code, e.Text)
}

// IsInvalidation reports whether err is the server's out-of-band
// invalidation signal rather than an ordinary disconnect.
func IsInvalidation(err error) bool {
	var ce *CloseError
	return errors.As(err, &ce) && ce.Code == wire.CloseInvalidated
}
