package syncengine

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"projecthub-be/internal/pkg/logger"
	"projecthub-be/pkg/syncengine/localstore"
	"projecthub-be/pkg/syncengine/wire"
)

// Phase is the session's position in its connection state machine. Every
// close-code path is one enumerated transition with a single handler.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseHydrating
	PhaseLive
	PhaseReconnecting
	PhaseInvalidated
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseHydrating:
		return "hydrating"
	case PhaseLive:
		return "live"
	case PhaseReconnecting:
		return "reconnecting"
	case PhaseInvalidated:
		return "invalidated"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ContentSink is the surrounding editor UI's attach point: it receives the
// materialized content whenever it changes. Render must not call back into
// the session.
type ContentSink interface {
	Render(state []byte)
}

// ConflictHandler receives local edits that raced an out-of-band server
// write and were dropped rather than silently merged over newer content.
type ConflictHandler func(room RoomID, dropped [][]byte)

type SessionConfig struct {
	Store     localstore.Store
	Transport Transport
	Fetcher   Fetcher
	Logger    logger.ILogger

	// MaxRetries bounds reconnect attempts per disconnect. After that the
	// session reports Disconnected and stops retrying until re-navigation.
	MaxRetries int
	BaseWait   time.Duration

	// Degraded marks the store as memory-only (no offline support).
	Degraded bool

	OnConflict   ConflictHandler
	OnInvalidate func(*Session)
	OnChange     func(*Session)
}

// Session owns one live channel for one open document. At most one exists
// per room per tab; the navigation bridge enforces that.
type Session struct {
	cfg  SessionConfig
	room RoomID

	mu               sync.Mutex
	phase            Phase
	conn             Conn
	epoch            uint64
	version          uint64
	state            []byte
	pending          [][]byte
	hadContent       bool
	retriesExhausted bool
	rehydrateFailed  bool
	sink             ContentSink
	settleCh         chan struct{}

	runCtx context.Context
	cancel context.CancelFunc
}

func NewSession(room RoomID, cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.BaseWait <= 0 {
		cfg.BaseWait = 500 * time.Millisecond
	}
	return &Session{
		cfg:      cfg,
		room:     room,
		phase:    PhaseIdle,
		settleCh: make(chan struct{}),
	}
}

func (s *Session) Room() RoomID { return s.room }

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// CurrentSnapshot returns the materialized in-memory content, or nil if
// nothing has been hydrated or cached yet.
func (s *Session) CurrentSnapshot() *localstore.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hadContent && s.state == nil {
		return nil
	}
	return &localstore.Snapshot{
		State:   append([]byte(nil), s.state...),
		Version: s.version,
	}
}

// Status projects the user-facing label from internal state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ProjectStatus(StatusInput{
		Phase:             s.phase,
		Pending:           len(s.pending),
		HasSnapshot:       s.hadContent,
		RetriesExhausted:  s.retriesExhausted,
		StoreDegraded:     s.cfg.Degraded,
		RehydrationFailed: s.rehydrateFailed,
	})
}

// Attach binds the editor UI to this session's content. The current state
// is rendered immediately so navigation never paints an empty frame when a
// cached snapshot exists.
func (s *Session) Attach(sink ContentSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
	if s.state != nil {
		sink.Render(append([]byte(nil), s.state...))
	}
}

// Connect starts the Idle -> Hydrating transition. It is non-blocking: the
// cached snapshot is loaded synchronously, the channel is dialed in the
// background.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.phase == PhaseClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.phase != PhaseIdle {
		s.mu.Unlock()
		return nil
	}
	s.phase = PhaseHydrating

	snap, err := s.cfg.Store.ReadSnapshot(s.room.String())
	if err != nil {
		s.cfg.Logger.Warn("SyncSession", "Cached snapshot unreadable, hydrating from network only", map[string]interface{}{"room": s.room.String(), "error": err.Error()})
	}
	if snap != nil {
		s.state = append([]byte(nil), snap.State...)
		s.version = snap.Version
		s.hadContent = true
		if snap.Dirty {
			s.cfg.Logger.Warn("SyncSession", "Cached snapshot contains edits the server never confirmed", map[string]interface{}{"room": s.room.String(), "version": snap.Version})
		}
		s.renderLocked()
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.runCtx = runCtx
	s.cancel = cancel
	epoch := s.epoch
	s.notifyLocked()
	s.mu.Unlock()

	go s.run(runCtx, epoch, false)
	return nil
}

// ApplyLocalEdit records a local content change. The edit is applied to the
// store and the UI immediately, queued for transmission when Live, and
// buffered across Hydrating/Reconnecting. It is never lost on a reconnect.
// While an invalidation is being handled the edit is refused with
// ErrInvalidated: the buffer was already drained into the conflict handler
// and rehydration is about to reset the state underneath it.
func (s *Session) ApplyLocalEdit(delta []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseClosed {
		return ErrSessionClosed
	}
	if s.phase == PhaseInvalidated {
		return ErrInvalidated
	}

	d := append([]byte(nil), delta...)
	s.state = append(s.state, d...)
	s.pending = append(s.pending, d)
	s.hadContent = true
	s.persistIncrementLocked(d)

	if s.phase == PhaseLive && s.conn != nil {
		if err := s.conn.Write(&wire.Message{Type: wire.MessageUpdate, Room: s.room.String(), Delta: d}); err != nil {
			// Keep the edit buffered; the read loop will surface the drop
			// and the buffer is flushed on reconnect.
			s.cfg.Logger.Warn("SyncSession", "Send failed, edit buffered for reconnect", map[string]interface{}{"room": s.room.String(), "error": err.Error()})
		}
	}

	s.renderLocked()
	s.notifyLocked()
	return nil
}

// Rehydrate discards in-memory state and reconnects from a clean slate,
// taking the server's current content as the new baseline. Driven by the
// invalidation controller.
func (s *Session) Rehydrate() error {
	s.mu.Lock()
	if s.phase == PhaseClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.epoch++
	epoch := s.epoch
	// The invalidation path drained the buffer already; anything that still
	// slipped in is surfaced as a conflict, never wiped without signal.
	leftover := s.pending
	s.pending = nil
	s.state = nil
	s.version = 0
	s.hadContent = false
	s.retriesExhausted = false
	s.rehydrateFailed = false
	s.phase = PhaseHydrating
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	ctx := s.runCtx
	s.notifyLocked()
	s.mu.Unlock()

	if len(leftover) > 0 && s.cfg.OnConflict != nil {
		s.cfg.OnConflict(s.room, leftover)
	}
	go s.run(ctx, epoch, true)
	return nil
}

// Resume restarts dialing for a session parked on exhausted retries. This is
// the manual retry path: re-navigating to the room picks the session back up
// instead of leaving it stuck on Disconnected. No-op in any other state.
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.phase == PhaseClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.phase != PhaseReconnecting || !s.retriesExhausted {
		s.mu.Unlock()
		return nil
	}
	s.epoch++
	epoch := s.epoch
	s.retriesExhausted = false
	// A failed rehydration retries the clean-slate path, so another failure
	// lands back in the explicit error state instead of plain Disconnected.
	rehydrating := s.rehydrateFailed
	s.rehydrateFailed = false
	ctx := s.runCtx
	s.notifyLocked()
	s.mu.Unlock()

	go s.run(ctx, epoch, rehydrating)
	return nil
}

// Close tears the session down. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.phase == PhaseClosed {
		s.mu.Unlock()
		return nil
	}
	s.phase = PhaseClosed
	s.epoch++
	conn := s.conn
	s.conn = nil
	cancel := s.cancel
	s.notifyLocked()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	return nil
}

// WaitSettled blocks until the session is Live with zero pending edits.
// This is the explicit "everything synced" signal tests and callers await
// instead of sleeping.
func (s *Session) WaitSettled(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.phase == PhaseClosed {
			s.mu.Unlock()
			return ErrSessionClosed
		}
		if s.settledLocked() {
			s.mu.Unlock()
			return nil
		}
		ch := s.settleCh
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// dropPending hands the un-acked edit buffer to the caller and empties it.
func (s *Session) dropPending() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := s.pending
	s.pending = nil
	return dropped
}

func (s *Session) run(ctx context.Context, epoch uint64, rehydrating bool) {
	fastFails := 0
	for {
		conn, err := s.dial(ctx)
		if err != nil {
			if s.stale(epoch) || ctx.Err() != nil {
				return
			}
			if rehydrating {
				s.fetchBaseline(ctx, epoch)
				return
			}
			s.exhaust()
			return
		}
		if s.stale(epoch) {
			conn.Close()
			return
		}

		live, err := s.serve(conn, epoch)
		conn.Close()

		if s.stale(epoch) || ctx.Err() != nil {
			return
		}
		if IsInvalidation(err) {
			s.mu.Lock()
			s.phase = PhaseInvalidated
			s.conn = nil
			cb := s.cfg.OnInvalidate
			s.notifyLocked()
			s.mu.Unlock()
			s.cfg.Logger.Info("SyncSession", "Content invalidated by out-of-band write", map[string]interface{}{"room": s.room.String()})
			if cb != nil {
				cb(s)
			}
			return
		}

		// A connection that drops before the handshake completes counts
		// against the retry budget; otherwise dialing a rejecting server
		// would spin forever.
		if live {
			fastFails = 0
		} else {
			fastFails++
			if rehydrating {
				s.fetchBaseline(ctx, epoch)
				return
			}
			if fastFails > s.cfg.MaxRetries {
				s.exhaust()
				return
			}
		}

		// Ordinary drop: keep the buffer, go around for a fresh dial.
		s.mu.Lock()
		s.phase = PhaseReconnecting
		s.conn = nil
		s.notifyLocked()
		s.mu.Unlock()
		rehydrating = false
	}
}

func (s *Session) exhaust() {
	s.mu.Lock()
	s.phase = PhaseReconnecting
	s.conn = nil
	s.retriesExhausted = true
	s.notifyLocked()
	s.mu.Unlock()
	s.cfg.Logger.Warn("SyncSession", "Reconnect attempts exhausted", map[string]interface{}{"room": s.room.String()})
}

// serve runs one connection: initial reconciliation, pending flush, then
// the receive loop. Remote updates are applied strictly in arrival order.
// The returned bool reports whether the connection completed its handshake
// and went Live.
func (s *Session) serve(conn Conn, epoch uint64) (bool, error) {
	msg, err := conn.Read()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false, nil
	}
	s.conn = conn
	if msg.Type == wire.MessageSync {
		s.adoptLocked(msg)
	}
	s.phase = PhaseLive
	s.retriesExhausted = false
	for _, d := range s.pending {
		if err := conn.Write(&wire.Message{Type: wire.MessageUpdate, Room: s.room.String(), Delta: d}); err != nil {
			s.mu.Unlock()
			return true, err
		}
	}
	s.notifyLocked()
	s.mu.Unlock()

	for {
		msg, err := conn.Read()
		if err != nil {
			return true, err
		}
		s.mu.Lock()
		if s.epoch != epoch {
			s.mu.Unlock()
			return true, nil
		}
		switch msg.Type {
		case wire.MessageUpdate:
			s.state = append(s.state, msg.Delta...)
			s.version = msg.Version
			s.hadContent = true
			s.persistIncrementLocked(msg.Delta)
			s.renderLocked()
		case wire.MessageAck:
			if len(s.pending) > 0 {
				s.pending = s.pending[1:]
			}
			s.version = msg.Version
			s.persistSnapshotLocked()
		case wire.MessageSync:
			s.adoptLocked(msg)
		}
		s.notifyLocked()
		s.mu.Unlock()
	}
}

// adoptLocked takes a server sync message as the authoritative baseline.
// Pending local edits stay buffered, re-applied on top of the baseline and
// re-sent.
func (s *Session) adoptLocked(msg *wire.Message) {
	s.state = append([]byte(nil), msg.State...)
	for _, d := range s.pending {
		s.state = append(s.state, d...)
	}
	s.version = msg.Version
	s.hadContent = true
	s.persistSnapshotLocked()
	s.renderLocked()
}

func (s *Session) dial(ctx context.Context) (Conn, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.BaseWait
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 0

	var conn Conn
	op := func() error {
		c, err := s.cfg.Transport.Dial(ctx, s.room)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(s.cfg.MaxRetries)), ctx)); err != nil {
		return nil, err
	}
	return conn, nil
}

// fetchBaseline is the REST fallback after an invalidation when the live
// channel cannot be re-established. Success leaves valid content with a
// dead socket (Disconnected); failure is the distinct error state.
func (s *Session) fetchBaseline(ctx context.Context, epoch uint64) {
	var (
		state   []byte
		version uint64
		err     error
	)
	if s.cfg.Fetcher == nil {
		err = ErrRehydrationFailed
	} else {
		state, version, err = s.cfg.Fetcher.Fetch(ctx, s.room)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.phase == PhaseClosed {
		return
	}
	s.phase = PhaseReconnecting
	s.retriesExhausted = true
	if err != nil {
		s.rehydrateFailed = true
		s.notifyLocked()
		s.cfg.Logger.Error("SyncSession", "Rehydration failed, content state unknown", map[string]interface{}{"room": s.room.String(), "error": err.Error()})
		return
	}
	s.adoptLocked(&wire.Message{Type: wire.MessageSync, Room: s.room.String(), State: state, Version: version})
	s.notifyLocked()
}

func (s *Session) stale(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch != epoch || s.phase == PhaseClosed
}

func (s *Session) settledLocked() bool {
	return s.phase == PhaseLive && len(s.pending) == 0
}

func (s *Session) notifyLocked() {
	if s.settledLocked() {
		select {
		case <-s.settleCh:
		default:
			close(s.settleCh)
		}
	} else {
		select {
		case <-s.settleCh:
			s.settleCh = make(chan struct{})
		default:
		}
	}
	if s.cfg.OnChange != nil {
		go s.cfg.OnChange(s)
	}
}

func (s *Session) renderLocked() {
	if s.sink != nil {
		s.sink.Render(append([]byte(nil), s.state...))
	}
}

// Storage failures are soft: log, keep serving from memory.

func (s *Session) persistIncrementLocked(delta []byte) {
	// A non-empty pending buffer means the persisted state runs ahead of its
	// recorded version; the dirty marker keeps that visible after a crash.
	if err := s.cfg.Store.WriteIncrement(s.room.String(), delta, s.version, len(s.pending) > 0); err != nil {
		s.cfg.Logger.Warn("SyncSession", "Local persist failed, continuing without cache", map[string]interface{}{"room": s.room.String(), "error": err.Error()})
	}
}

func (s *Session) persistSnapshotLocked() {
	snap := &localstore.Snapshot{State: s.state, Version: s.version, Dirty: len(s.pending) > 0}
	if err := s.cfg.Store.WriteSnapshot(s.room.String(), snap); err != nil {
		s.cfg.Logger.Warn("SyncSession", "Local persist failed, continuing without cache", map[string]interface{}{"room": s.room.String(), "error": err.Error()})
	}
}
