package localstore

import (
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	keyState   = []byte("state")
	keyVersion = []byte("version")
	keyUpdated = []byte("updated_at")
	keyDirty   = []byte("dirty")
)

// BoltStore persists one bucket per room in a single bbolt file.
type BoltStore struct {
	db *bbolt.DB
}

func OpenBolt(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Open(room string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(room))
		return err
	})
}

func (s *BoltStore) ReadSnapshot(room string) (*Snapshot, error) {
	var snap *Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(room))
		if b == nil {
			return nil
		}
		state := b.Get(keyState)
		if state == nil {
			return nil
		}
		snap = &Snapshot{State: append([]byte(nil), state...)}
		if v := b.Get(keyVersion); len(v) == 8 {
			snap.Version = binary.BigEndian.Uint64(v)
		}
		if t := b.Get(keyUpdated); t != nil {
			snap.UpdatedAt, _ = time.Parse(time.RFC3339Nano, string(t))
		}
		if d := b.Get(keyDirty); len(d) == 1 && d[0] == 1 {
			snap.Dirty = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *BoltStore) WriteIncrement(room string, delta []byte, version uint64, dirty bool) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(room))
		if err != nil {
			return err
		}
		state := append(append([]byte(nil), b.Get(keyState)...), delta...)
		return putSnapshot(b, state, version, dirty)
	})
}

func (s *BoltStore) WriteSnapshot(room string, snap *Snapshot) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(room))
		if err != nil {
			return err
		}
		return putSnapshot(b, snap.State, snap.Version, snap.Dirty)
	})
}

func (s *BoltStore) Clear(room string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.DeleteBucket([]byte(room))
		if err == bbolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func putSnapshot(b *bbolt.Bucket, state []byte, version uint64, dirty bool) error {
	if err := b.Put(keyState, state); err != nil {
		return err
	}
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, version)
	if err := b.Put(keyVersion, v); err != nil {
		return err
	}
	d := []byte{0}
	if dirty {
		d[0] = 1
	}
	if err := b.Put(keyDirty, d); err != nil {
		return err
	}
	return b.Put(keyUpdated, []byte(time.Now().UTC().Format(time.RFC3339Nano)))
}
