package syncengine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"projecthub-be/pkg/syncengine/localstore"
	"projecthub-be/pkg/syncengine/wire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// autoTransport acts as a minimal in-process server: every dial gets a
// connection that is synced to the current content and acks updates.
type autoTransport struct {
	mu      sync.Mutex
	state   []byte
	version uint64
	conns   []*fakeConn
}

func (t *autoTransport) Dial(ctx context.Context, room RoomID) (Conn, error) {
	c := newFakeConn()
	t.mu.Lock()
	c.in <- &wire.Message{Type: wire.MessageSync, Room: room.String(), Version: t.version, State: append([]byte(nil), t.state...)}
	t.conns = append(t.conns, c)
	t.mu.Unlock()

	go func() {
		for {
			select {
			case msg := <-c.out:
				t.mu.Lock()
				t.state = append(t.state, msg.Delta...)
				t.version++
				v := t.version
				t.mu.Unlock()
				c.in <- &wire.Message{Type: wire.MessageAck, Version: v}
			case <-c.closed:
				return
			}
		}
	}()
	return c, nil
}

// invalidate simulates an out-of-band content write: all live connections
// are closed with the invalidation code and the content is replaced.
func (t *autoTransport) invalidate(newState []byte, newVersion uint64) {
	t.mu.Lock()
	conns := t.conns
	t.conns = nil
	t.state = append([]byte(nil), newState...)
	t.version = newVersion
	t.mu.Unlock()
	for _, c := range conns {
		c.dropWith(&CloseError{Code: wire.CloseInvalidated, Text: "patch"})
	}
}

// gatedTransport refuses every dial until opened, then delegates.
type gatedTransport struct {
	mu     sync.Mutex
	inner  Transport
	refuse bool
	dials  int
}

func (t *gatedTransport) Dial(ctx context.Context, room RoomID) (Conn, error) {
	t.mu.Lock()
	t.dials++
	refuse := t.refuse
	t.mu.Unlock()
	if refuse {
		return nil, errors.New("dial refused")
	}
	return t.inner.Dial(ctx, room)
}

func (t *gatedTransport) open() {
	t.mu.Lock()
	t.refuse = false
	t.mu.Unlock()
}

func (t *gatedTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func newTestBridge(t *testing.T, transport Transport, grace time.Duration) (*Bridge, localstore.Store) {
	t.Helper()
	store := localstore.NewMemoryStore()
	b := NewBridge(BridgeConfig{
		Store:       store,
		Transport:   transport,
		GraceWindow: grace,
		MaxRetries:  2,
		BaseWait:    time.Millisecond,
	})
	t.Cleanup(func() { b.Close() })
	return b, store
}

func TestBridgeFirstVisitHasNoSnapshot(t *testing.T) {
	transport := &autoTransport{state: []byte("server copy"), version: 1}
	b, _ := newTestBridge(t, transport, time.Second)

	view, err := b.OnNavigateTo(context.Background(), testRoom())
	require.NoError(t, err)
	assert.Nil(t, view.Snapshot)
	require.NotNil(t, view.Session)

	settle(t, view.Session)
	snap := view.Session.CurrentSnapshot()
	require.NotNil(t, snap)
	assert.Equal(t, []byte("server copy"), snap.State)
}

func TestBridgeRevisitPaintsFromCache(t *testing.T) {
	transport := &autoTransport{state: []byte("cached copy"), version: 2}
	b, store := newTestBridge(t, transport, time.Second)
	room := testRoom()

	require.NoError(t, store.WriteSnapshot(room.String(), &localstore.Snapshot{State: []byte("cached copy"), Version: 2}))

	view, err := b.OnNavigateTo(context.Background(), room)
	require.NoError(t, err)
	// The snapshot is available synchronously, before the channel is live.
	require.NotNil(t, view.Snapshot)
	assert.Equal(t, []byte("cached copy"), view.Snapshot.State)
	assert.Equal(t, uint64(2), view.Snapshot.Version)
}

func TestBridgeReusesSessionWithinGraceWindow(t *testing.T) {
	transport := &autoTransport{state: []byte("doc"), version: 1}
	b, _ := newTestBridge(t, transport, 300*time.Millisecond)
	room := testRoom()

	first, err := b.OnNavigateTo(context.Background(), room)
	require.NoError(t, err)
	settle(t, first.Session)

	b.OnNavigateAway(room)

	second, err := b.OnNavigateTo(context.Background(), room)
	require.NoError(t, err)
	assert.Same(t, first.Session, second.Session)

	// The cancelled teardown must not fire later.
	time.Sleep(400 * time.Millisecond)
	assert.NotEqual(t, PhaseClosed, second.Session.Phase())
}

func TestBridgeRenavigationRetriesExhaustedSession(t *testing.T) {
	gate := &gatedTransport{inner: &autoTransport{state: []byte("doc"), version: 1}, refuse: true}
	b, _ := newTestBridge(t, gate, time.Second)
	room := testRoom()

	first, err := b.OnNavigateTo(context.Background(), room)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return first.Session.Status() == StatusDisconnected
	}, 5*time.Second, 5*time.Millisecond)

	// Parked session: no dials happen on their own anymore.
	stalled := gate.dialCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stalled, gate.dialCount())

	// Toggling away and back is the manual retry, and the network is back.
	gate.open()
	b.OnNavigateAway(room)
	second, err := b.OnNavigateTo(context.Background(), room)
	require.NoError(t, err)
	require.Same(t, first.Session, second.Session)

	settle(t, second.Session)
	assert.Greater(t, gate.dialCount(), stalled)
	assert.Equal(t, StatusSaved, second.Session.Status())
}

func TestBridgeTearsDownAfterGraceWindow(t *testing.T) {
	transport := &autoTransport{state: []byte("doc"), version: 1}
	b, _ := newTestBridge(t, transport, 50*time.Millisecond)
	room := testRoom()

	first, err := b.OnNavigateTo(context.Background(), room)
	require.NoError(t, err)
	settle(t, first.Session)

	b.OnNavigateAway(room)

	assert.Eventually(t, func() bool {
		return first.Session.Phase() == PhaseClosed
	}, 5*time.Second, 10*time.Millisecond)

	// A later visit builds a fresh session.
	second, err := b.OnNavigateTo(context.Background(), room)
	require.NoError(t, err)
	assert.NotSame(t, first.Session, second.Session)
}

func TestBridgeSessionsAreIsolatedPerRoom(t *testing.T) {
	transport := &autoTransport{state: []byte("doc"), version: 1}
	b, store := newTestBridge(t, transport, time.Second)
	roomA, roomB := testRoom(), testRoom()

	viewA, err := b.OnNavigateTo(context.Background(), roomA)
	require.NoError(t, err)
	viewB, err := b.OnNavigateTo(context.Background(), roomB)
	require.NoError(t, err)
	assert.NotSame(t, viewA.Session, viewB.Session)

	settle(t, viewA.Session)
	require.NoError(t, viewA.Session.ApplyLocalEdit([]byte(" only A")))
	settle(t, viewA.Session)

	snapB, err := store.ReadSnapshot(roomB.String())
	require.NoError(t, err)
	if snapB != nil {
		assert.NotContains(t, string(snapB.State), "only A")
	}
}

func TestBridgeDocumentDeletedDropsSessionAndCache(t *testing.T) {
	transport := &autoTransport{state: []byte("doc"), version: 1}
	b, store := newTestBridge(t, transport, time.Second)
	room := testRoom()

	view, err := b.OnNavigateTo(context.Background(), room)
	require.NoError(t, err)
	settle(t, view.Session)

	b.OnDocumentDeleted(room)

	assert.Equal(t, PhaseClosed, view.Session.Phase())
	snap, err := store.ReadSnapshot(room.String())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestBridgeInvalidationRehydratesAttachedSession(t *testing.T) {
	transport := &autoTransport{state: []byte("v1"), version: 1}
	b, store := newTestBridge(t, transport, time.Second)
	room := testRoom()

	view, err := b.OnNavigateTo(context.Background(), room)
	require.NoError(t, err)
	settle(t, view.Session)

	// Out-of-band write: server content replaced, live sockets closed with
	// the invalidation code.
	transport.invalidate([]byte("v2 fresh"), 5)

	assert.Eventually(t, func() bool {
		snap := view.Session.CurrentSnapshot()
		return view.Session.Phase() == PhaseLive && snap != nil && string(snap.State) == "v2 fresh"
	}, 5*time.Second, 10*time.Millisecond)

	// The stale cache was dropped before the fresh copy was adopted.
	cached, err := store.ReadSnapshot(room.String())
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, []byte("v2 fresh"), cached.State)
	assert.Equal(t, uint64(5), cached.Version)
}

func TestBridgeClosedRejectsNavigation(t *testing.T) {
	transport := &autoTransport{}
	b, _ := newTestBridge(t, transport, time.Second)
	require.NoError(t, b.Close())

	_, err := b.OnNavigateTo(context.Background(), testRoom())
	assert.ErrorIs(t, err, ErrSessionClosed)
}
