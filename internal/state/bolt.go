package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var recordsBucket = []byte("integrations")

// BoltStore is a bbolt-backed Store. Every Save/Remove runs in its own
// write transaction, so the record is fsync'd before the call returns.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if necessary) the state database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to initialize state database: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Load reads every stored record.
func (s *BoltStore) Load(ctx context.Context) (map[string]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make(map[string]Record)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		return b.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupt record %q: %w", string(k), err)
			}
			records[string(k)] = rec
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	return records, nil
}

// Save writes the record for id inside a single durable transaction.
func (s *BoltStore) Save(ctx context.Context, id string, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %q: %w", id, err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).Put([]byte(id), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save record %q: %w", id, err)
	}
	return nil
}

// Remove deletes the record for id. Deleting an absent key succeeds.
func (s *BoltStore) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("failed to remove record %q: %w", id, err)
	}
	return nil
}

// Close releases the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
