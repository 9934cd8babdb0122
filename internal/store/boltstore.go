// Package store persists the ledger snapshot and the committed event journal
// in a local bbolt database.
package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/0gfoundation/0g-drops/internal/events"
	"github.com/0gfoundation/0g-drops/internal/ledger"
)

var (
	bucketSnapshot = []byte("snapshot")
	bucketEvents   = []byte("events")

	keyState = []byte("state")
)

// ErrNoSnapshot is returned by LoadState on a fresh database.
var ErrNoSnapshot = errors.New("store: no snapshot")

// StoredEvent is a journaled envelope with its payload kept as raw JSON.
type StoredEvent struct {
	Seq     uint64          `json:"seq"`
	Name    string          `json:"name"`
	Time    int64           `json:"time"`
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload"`
}

// BoltStore wraps a bbolt database holding the ledger snapshot and event journal.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ events.Sink = (*BoltStore)(nil)

// Open opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func Open(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSnapshot, bucketEvents} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("store: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// seqKey encodes a sequence number as an 8-byte big-endian key for sorted storage.
func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// SaveState overwrites the snapshot with st.
func (s *BoltStore) SaveState(st *ledger.State) error {
	data, err := encodeGob(st)
	if err != nil {
		return fmt.Errorf("store: encode state: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketSnapshot).Put(keyState, data); err != nil {
			return fmt.Errorf("store: put state: %w", err)
		}
		return nil
	})
}

// LoadState decodes the last saved snapshot.
func (s *BoltStore) LoadState() (*ledger.State, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketSnapshot).Get(keyState); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNoSnapshot
	}
	var st ledger.State
	if err := decodeGob(data, &st); err != nil {
		return nil, fmt.Errorf("store: decode state: %w", err)
	}
	st.Normalize()
	return &st, nil
}

// Publish appends a batch of committed envelopes to the journal. An envelope
// whose sequence number is already journaled is rejected.
func (s *BoltStore) Publish(_ context.Context, envs []events.Envelope) error {
	if len(envs) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		for _, e := range envs {
			k := seqKey(e.Seq)
			if b.Get(k) != nil {
				return fmt.Errorf("store: event %d already journaled", e.Seq)
			}
			raw, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("store: marshal event %d: %w", e.Seq, err)
			}
			if err := b.Put(k, raw); err != nil {
				return fmt.Errorf("store: put event %d: %w", e.Seq, err)
			}
		}
		return nil
	})
}

// Events returns up to limit journaled events with Seq >= from, in order.
// A limit of zero means no limit.
func (s *BoltStore) Events(from uint64, limit int) ([]StoredEvent, error) {
	var out []StoredEvent
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.Seek(seqKey(from)); k != nil; k, v = c.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var e StoredEvent
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("store: decode event %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// LastSeq returns the highest journaled sequence number, or 0.
func (s *BoltStore) LastSeq() (uint64, error) {
	var seq uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		if k, _ := tx.Bucket(bucketEvents).Cursor().Last(); k != nil {
			seq = binary.BigEndian.Uint64(k)
		}
		return nil
	})
	return seq, err
}
