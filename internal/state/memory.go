package state

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and dry runs. It honors
// the same contract as BoltStore minus durability, and can inject failures
// to exercise the reconciler's fatal-error path.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record

	// FailSave and FailRemove, when set, are returned verbatim from the
	// corresponding call.
	FailSave   error
	FailRemove error
	FailLoad   error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Seed inserts a record directly, bypassing failure injection.
func (s *MemoryStore) Seed(id string, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec
}

// Get returns the record for id and whether it exists.
func (s *MemoryStore) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Load returns a copy of all records.
func (s *MemoryStore) Load(ctx context.Context) (map[string]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.FailLoad != nil {
		return nil, s.FailLoad
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Record, len(s.records))
	for id, rec := range s.records {
		out[id] = rec
	}
	return out, nil
}

// Save stores the record for id.
func (s *MemoryStore) Save(ctx context.Context, id string, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailSave != nil {
		return s.FailSave
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec
	return nil
}

// Remove deletes the record for id.
func (s *MemoryStore) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailRemove != nil {
		return s.FailRemove
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
