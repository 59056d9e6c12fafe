package syncengine

import (
	"context"
	"sync"
	"time"

	"projecthub-be/internal/pkg/logger"
	"projecthub-be/pkg/syncengine/localstore"
)

// Bridge mediates between route navigation and session lifecycle. It owns
// the RoomID -> Session table exclusively, so there is never more than one
// live session per room, and tearing one down never races the next one
// starting.
type Bridge struct {
	cfg      BridgeConfig
	store    localstore.Store
	degraded bool
	ctrl     *InvalidationController
	logger   logger.ILogger

	mu       sync.Mutex
	sessions map[RoomID]*bridgeEntry
	closed   bool
}

type bridgeEntry struct {
	session *Session
	away    *time.Timer
	awaySeq uint64
}

type BridgeConfig struct {
	// StorePath is the durable cache file. Ignored when Store is set.
	StorePath string
	Store     localstore.Store

	Transport Transport
	Fetcher   Fetcher
	Logger    logger.ILogger

	// GraceWindow delays teardown after navigation away, so toggling
	// between two documents reuses connections instead of thrashing them.
	GraceWindow time.Duration

	MaxRetries int
	BaseWait   time.Duration
	OnConflict ConflictHandler
}

// View is what a navigation hands the UI: the cached snapshot for the
// initial synchronous paint (nil only on a first-ever visit), plus the live
// session to attach to.
type View struct {
	Room     RoomID
	Snapshot *localstore.Snapshot
	Session  *Session
}

func NewBridge(cfg BridgeConfig) *Bridge {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cfg.GraceWindow <= 0 {
		cfg.GraceWindow = 2 * time.Second
	}

	store := cfg.Store
	degraded := false
	if store == nil {
		bolt, err := localstore.OpenBolt(cfg.StorePath)
		if err != nil {
			// Degrade to memory-only: no persistence across restarts, but
			// the editor keeps working.
			log.Warn("Bridge", "Durable store unavailable, running memory-only", map[string]interface{}{"path": cfg.StorePath, "error": err.Error()})
			store = localstore.NewMemoryStore()
			degraded = true
		} else {
			store = bolt
		}
	}

	return &Bridge{
		cfg:      cfg,
		store:    store,
		degraded: degraded,
		ctrl:     NewInvalidationController(store, log),
		logger:   log,
		sessions: make(map[RoomID]*bridgeEntry),
	}
}

// Degraded reports whether the bridge fell back to memory-only storage.
func (b *Bridge) Degraded() bool { return b.degraded }

// Store exposes the local store (document deletion propagation, tests).
func (b *Bridge) Store() localstore.Store { return b.store }

// OnNavigateTo resolves or creates the session for a room. An existing live
// session is reused (rapid back-and-forth), with any scheduled teardown
// cancelled. Otherwise the cached snapshot is read synchronously for the
// instant paint and the session connects in the background.
func (b *Bridge) OnNavigateTo(ctx context.Context, room RoomID) (*View, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrSessionClosed
	}

	if e, ok := b.sessions[room]; ok && e.session.Phase() != PhaseClosed {
		e.awaySeq++
		if e.away != nil {
			e.away.Stop()
			e.away = nil
		}
		// Re-navigation is the manual retry: a session that exhausted its
		// reconnect budget starts dialing again here.
		if err := e.session.Resume(); err != nil {
			b.logger.Warn("Bridge", "Could not resume parked session", map[string]interface{}{"room": room.String(), "error": err.Error()})
		}
		return &View{Room: room, Snapshot: e.session.CurrentSnapshot(), Session: e.session}, nil
	}

	if err := b.store.Open(room.String()); err != nil {
		b.logger.Warn("Bridge", "Could not open store partition", map[string]interface{}{"room": room.String(), "error": err.Error()})
	}
	snap, err := b.store.ReadSnapshot(room.String())
	if err != nil {
		b.logger.Warn("Bridge", "Cached snapshot unreadable", map[string]interface{}{"room": room.String(), "error": err.Error()})
		snap = nil
	}

	s := NewSession(room, SessionConfig{
		Store:        b.store,
		Transport:    b.cfg.Transport,
		Fetcher:      b.cfg.Fetcher,
		Logger:       b.logger,
		MaxRetries:   b.cfg.MaxRetries,
		BaseWait:     b.cfg.BaseWait,
		Degraded:     b.degraded,
		OnConflict:   b.cfg.OnConflict,
		OnInvalidate: b.handleInvalidated,
	})
	b.sessions[room] = &bridgeEntry{session: s}

	if err := s.Connect(ctx); err != nil {
		delete(b.sessions, room)
		return nil, err
	}
	return &View{Room: room, Snapshot: snap, Session: s}, nil
}

// OnNavigateAway schedules teardown for a room's session. If the user
// navigates back within the grace window the session is reused instead.
func (b *Bridge) OnNavigateAway(room RoomID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.sessions[room]
	if !ok {
		return
	}
	e.awaySeq++
	seq := e.awaySeq
	if e.away != nil {
		e.away.Stop()
	}
	e.away = time.AfterFunc(b.cfg.GraceWindow, func() {
		b.mu.Lock()
		cur, ok := b.sessions[room]
		expired := ok && cur == e && cur.awaySeq == seq
		if expired {
			delete(b.sessions, room)
		}
		b.mu.Unlock()
		if expired {
			e.session.Close()
		}
	})
}

// OnDocumentDeleted propagates an explicit document deletion: the session
// (if any) is torn down and the cached snapshot removed.
func (b *Bridge) OnDocumentDeleted(room RoomID) {
	b.mu.Lock()
	e, ok := b.sessions[room]
	if ok {
		delete(b.sessions, room)
	}
	b.mu.Unlock()

	if ok {
		if e.away != nil {
			e.away.Stop()
		}
		e.session.Close()
	}
	if err := b.store.Clear(room.String()); err != nil {
		b.logger.Warn("Bridge", "Failed to clear deleted document cache", map[string]interface{}{"room": room.String(), "error": err.Error()})
	}
}

// Close tears down every session and the store.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	entries := make([]*bridgeEntry, 0, len(b.sessions))
	for _, e := range b.sessions {
		entries = append(entries, e)
	}
	b.sessions = make(map[RoomID]*bridgeEntry)
	b.mu.Unlock()

	for _, e := range entries {
		if e.away != nil {
			e.away.Stop()
		}
		e.session.Close()
	}
	return b.store.Close()
}

// handleInvalidated routes a session's invalidation signal through the
// controller. A session still owned by the bridge with no pending teardown
// is "attached": it reconnects from a clean slate. Anything else only has
// its cache cleared.
func (b *Bridge) handleInvalidated(s *Session) {
	room := s.Room()

	b.mu.Lock()
	e, ok := b.sessions[room]
	attached := ok && e.session == s && e.away == nil && !b.closed
	if !attached && ok && e.session == s {
		delete(b.sessions, room)
	}
	b.mu.Unlock()

	b.ctrl.OnInvalidate(s, attached)
}
