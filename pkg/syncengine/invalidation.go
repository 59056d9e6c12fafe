package syncengine

import (
	"projecthub-be/internal/pkg/logger"
	"projecthub-be/pkg/syncengine/localstore"
)

// InvalidationController guarantees that once the server signals an
// out-of-band content change, stale cached content is never shown again for
// that room until a fresh copy is fetched.
type InvalidationController struct {
	store  localstore.Store
	logger logger.ILogger
}

func NewInvalidationController(store localstore.Store, log logger.ILogger) *InvalidationController {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &InvalidationController{store: store, logger: log}
}

// OnInvalidate handles a session that received the invalidation close code.
//
// Local edits predating the signal raced a server-side overwrite; they are
// dropped and handed to the conflict handler rather than silently merged
// over the server's newer content. The store is cleared before any
// reconnect hydration can read it, as one sequenced step. If the view has
// navigated away (attached == false) the cache is still cleared so a later
// re-open is not stale, but no reconnect happens.
func (c *InvalidationController) OnInvalidate(s *Session, attached bool) {
	room := s.Room()

	if dropped := s.dropPending(); len(dropped) > 0 {
		c.logger.Warn("Invalidation", "Dropping local edits that raced an out-of-band write", map[string]interface{}{"room": room.String(), "edits": len(dropped)})
		if s.cfg.OnConflict != nil {
			s.cfg.OnConflict(room, dropped)
		}
	}

	if err := c.store.Clear(room.String()); err != nil {
		c.logger.Warn("Invalidation", "Failed to clear cached snapshot", map[string]interface{}{"room": room.String(), "error": err.Error()})
	}

	if attached {
		if err := s.Rehydrate(); err != nil {
			c.logger.Error("Invalidation", "Rehydrate failed to start", map[string]interface{}{"room": room.String(), "error": err.Error()})
		}
		return
	}
	s.Close()
}
