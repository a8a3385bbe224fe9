package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// DefaultFileName is the database file inside the storage directory
const DefaultFileName = "pdfinsights.db"

var (
	valuesBucket  = []byte("values")
	updatedBucket = []byte("updated")
)

// BoltStore keeps every key in a single bbolt database file. Values are
// stored as JSON; a second bucket records when each key was last written.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

// BoltOption configures a BoltStore
type BoltOption func(*BoltStore)

// WithBoltClock sets the time source of Entry.Updated
func WithBoltClock(now func() time.Time) BoltOption {
	return func(s *BoltStore) {
		s.now = now
	}
}

// OpenBoltStore opens or creates the database at path, creating its
// directory if needed
func OpenBoltStore(path string, opts ...BoltOption) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{valuesBucket, updatedBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise storage: %w", err)
	}

	s := &BoltStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DefaultDir returns the per-user storage directory
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "pdfinsights"), nil
}

// Path returns the database file
func (s *BoltStore) Path() string {
	return s.db.Path()
}

// Close releases the database file
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Save implements Store
func (s *BoltStore) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	stamp := make([]byte, 8)
	binary.BigEndian.PutUint64(stamp, uint64(s.now().UnixNano()))

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(valuesBucket).Put([]byte(key), data); err != nil {
			return err
		}
		return tx.Bucket(updatedBucket).Put([]byte(key), stamp)
	})
	if err != nil {
		return fmt.Errorf("failed to save %q: %w", key, err)
	}
	return nil
}

// Load implements Store
func (s *BoltStore) Load(key string, v any) (bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		// Get returns memory owned by the transaction
		if b := tx.Bucket(valuesBucket).Get([]byte(key)); b != nil {
			data = append([]byte(nil), b...)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to load %q: %w", key, err)
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return true, nil
}

// Delete implements Store
func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		values := tx.Bucket(valuesBucket)
		if values.Get([]byte(key)) == nil {
			return fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		if err := values.Delete([]byte(key)); err != nil {
			return err
		}
		return tx.Bucket(updatedBucket).Delete([]byte(key))
	})
}

// Entries implements Store
func (s *BoltStore) Entries() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		updated := tx.Bucket(updatedBucket)
		c := tx.Bucket(valuesBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			e := Entry{Key: string(k), Size: int64(len(v))}
			if stamp := updated.Get(k); len(stamp) == 8 {
				e.Updated = time.Unix(0, int64(binary.BigEndian.Uint64(stamp)))
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list storage: %w", err)
	}
	return entries, nil
}
