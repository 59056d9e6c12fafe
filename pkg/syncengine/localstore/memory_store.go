package localstore

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is the degraded-mode fallback when durable storage is denied
// (private browsing, locked file). Nothing survives a restart, but the
// engine keeps the same contract and never crashes.
type MemoryStore struct {
	c *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, cache.NoExpiration)}
}

func (s *MemoryStore) Open(room string) error {
	return nil
}

func (s *MemoryStore) ReadSnapshot(room string) (*Snapshot, error) {
	if x, found := s.c.Get(room); found {
		return x.(*Snapshot).clone(), nil
	}
	return nil, nil
}

func (s *MemoryStore) WriteIncrement(room string, delta []byte, version uint64, dirty bool) error {
	snap, _ := s.ReadSnapshot(room)
	if snap == nil {
		snap = &Snapshot{}
	}
	snap.State = append(snap.State, delta...)
	snap.Version = version
	snap.Dirty = dirty
	return s.WriteSnapshot(room, snap)
}

func (s *MemoryStore) WriteSnapshot(room string, snap *Snapshot) error {
	cp := snap.clone()
	cp.UpdatedAt = time.Now().UTC()
	s.c.Set(room, cp, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) Clear(room string) error {
	s.c.Delete(room)
	return nil
}

func (s *MemoryStore) Close() error {
	s.c.Flush()
	return nil
}
