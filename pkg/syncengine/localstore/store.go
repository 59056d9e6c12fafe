// Package localstore is the per-room durable cache under the sync engine.
// One logical partition per room id; content state is opaque to this layer.
package localstore

import (
	"errors"
	"time"
)

var (
	// ErrUnavailable means the durable store cannot be opened at all
	// (restricted environment, locked file). Callers degrade to the memory
	// store instead of failing.
	ErrUnavailable = errors.New("local store unavailable")

	// ErrQuotaExceeded means a single write was refused for space. The write
	// is dropped and the session keeps operating from memory.
	ErrQuotaExceeded = errors.New("local store quota exceeded")
)

// Snapshot is the locally persisted content state of one room at its last
// sync point.
type Snapshot struct {
	State     []byte
	Version   uint64
	UpdatedAt time.Time

	// Dirty marks a snapshot that contains local edits the server has not
	// acknowledged. Such a snapshot is ahead of its recorded version; after
	// a crash those edits exist only here.
	Dirty bool
}

func (s *Snapshot) clone() *Snapshot {
	if s == nil {
		return nil
	}
	cp := *s
	cp.State = append([]byte(nil), s.State...)
	return &cp
}

type Store interface {
	// Open idempotently creates the partition for a room.
	Open(room string) error

	// ReadSnapshot returns the last persisted snapshot, or nil if the room
	// was never cached.
	ReadSnapshot(room string) (*Snapshot, error)

	// WriteIncrement merges one incremental update into the stored snapshot
	// and records the given version. dirty says whether the resulting
	// snapshot holds edits the server has not acknowledged yet.
	WriteIncrement(room string, delta []byte, version uint64, dirty bool) error

	// WriteSnapshot replaces the stored snapshot wholesale. Used when
	// adopting a fresh authoritative baseline during hydration.
	WriteSnapshot(room string, snap *Snapshot) error

	// Clear deletes everything persisted for a room. Only the invalidation
	// path and explicit document deletion call this.
	Clear(room string) error

	Close() error
}
