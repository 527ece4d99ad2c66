package memory

import (
	"context"
	"sync"

	id "archgate/pkg/domain"
	audit "archgate/pkg/platform/audit"
)

// InMemoryStore keeps entries per object in append order. Used by tests and
// single-process development setups.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.ObjectID][]audit.Entry
	total   int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.ObjectID][]audit.Entry)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[id.ObjectID][]audit.Entry)
	s.total = 0
}

func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ObjectID] = append(s.entries[entry.ObjectID], entry)
	s.total++
	return nil
}

func (s *InMemoryStore) AppendBatch(ctx context.Context, entries []audit.Entry) error {
	for _, e := range entries {
		if err := s.Append(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *InMemoryStore) ListByObject(_ context.Context, objectID id.ObjectID) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Entry{}, s.entries[objectID]...), nil
}

// Len returns the number of entries across all objects.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}
