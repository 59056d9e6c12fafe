package localstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestBolt(t *testing.T) *BoltStore {
	t.Helper()
	s, err := OpenBolt(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// Both implementations must satisfy the same contract.
func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"bolt":   openTestBolt(t),
		"memory": NewMemoryStore(),
	}
}

func TestStoreMissingRoomReadsNil(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			snap, err := s.ReadSnapshot("wiki:nope")
			require.NoError(t, err)
			assert.Nil(t, snap)
		})
	}
}

func TestStoreIncrementsAccumulate(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			room := "wiki:room-a"
			require.NoError(t, s.Open(room))
			require.NoError(t, s.WriteIncrement(room, []byte("hello "), 1, true))
			require.NoError(t, s.WriteIncrement(room, []byte("world"), 2, true))

			snap, err := s.ReadSnapshot(room)
			require.NoError(t, err)
			require.NotNil(t, snap)
			assert.Equal(t, []byte("hello world"), snap.State)
			assert.Equal(t, uint64(2), snap.Version)
			assert.False(t, snap.UpdatedAt.IsZero())
		})
	}
}

func TestStoreSnapshotReplacesWholesale(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			room := "wiki:room-b"
			require.NoError(t, s.WriteIncrement(room, []byte("stale"), 1, true))
			require.NoError(t, s.WriteSnapshot(room, &Snapshot{State: []byte("fresh"), Version: 7}))

			snap, err := s.ReadSnapshot(room)
			require.NoError(t, err)
			require.NotNil(t, snap)
			assert.Equal(t, []byte("fresh"), snap.State)
			assert.Equal(t, uint64(7), snap.Version)
		})
	}
}

func TestStoreDirtyMarkerFollowsAcknowledgement(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			room := "wiki:room-dirty"
			require.NoError(t, s.WriteIncrement(room, []byte("typed"), 1, true))

			snap, err := s.ReadSnapshot(room)
			require.NoError(t, err)
			require.NotNil(t, snap)
			assert.True(t, snap.Dirty)

			// The server confirming the edit replaces the snapshot cleanly.
			require.NoError(t, s.WriteSnapshot(room, &Snapshot{State: []byte("typed"), Version: 2}))

			snap, err = s.ReadSnapshot(room)
			require.NoError(t, err)
			require.NotNil(t, snap)
			assert.False(t, snap.Dirty)
			assert.Equal(t, uint64(2), snap.Version)
		})
	}
}

func TestStoreClearRemovesOnlyThatRoom(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.WriteIncrement("wiki:gone", []byte("x"), 1, false))
			require.NoError(t, s.WriteIncrement("wiki:kept", []byte("y"), 1, false))

			require.NoError(t, s.Clear("wiki:gone"))
			require.NoError(t, s.Clear("wiki:never-existed"))

			gone, err := s.ReadSnapshot("wiki:gone")
			require.NoError(t, err)
			assert.Nil(t, gone)

			kept, err := s.ReadSnapshot("wiki:kept")
			require.NoError(t, err)
			require.NotNil(t, kept)
			assert.Equal(t, []byte("y"), kept.State)
		})
	}
}

func TestStoreSnapshotsAreIsolatedCopies(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			room := "wiki:room-c"
			require.NoError(t, s.WriteSnapshot(room, &Snapshot{State: []byte("abc"), Version: 1}))

			snap, err := s.ReadSnapshot(room)
			require.NoError(t, err)
			snap.State[0] = 'z'

			again, err := s.ReadSnapshot(room)
			require.NoError(t, err)
			assert.Equal(t, []byte("abc"), again.State)
		})
	}
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteIncrement("wiki:durable", []byte("persisted"), 4, true))
	require.NoError(t, s.Close())

	s, err = OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()

	snap, err := s.ReadSnapshot("wiki:durable")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, []byte("persisted"), snap.State)
	assert.Equal(t, uint64(4), snap.Version)
	assert.True(t, snap.Dirty)
}

func TestOpenBoltUnavailablePath(t *testing.T) {
	_, err := OpenBolt(filepath.Join(t.TempDir(), "missing-dir", "cache.db"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}
