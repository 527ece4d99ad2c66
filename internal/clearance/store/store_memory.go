package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"archgate/internal/restriction"
	id "archgate/pkg/domain"
)

// InMemoryStore holds group memberships and overrides for tests and local runs.
type InMemoryStore struct {
	mu        sync.RWMutex
	groups    map[id.UserID][]string
	overrides map[id.UserID]map[id.ObjectID]restriction.ClearanceLevel
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		groups:    make(map[id.UserID][]string),
		overrides: make(map[id.UserID]map[id.ObjectID]restriction.ClearanceLevel),
	}
}

// SetGroups replaces a user's memberships.
func (s *InMemoryStore) SetGroups(userID id.UserID, groups ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[userID] = slices.Clone(groups)
}

// SetOverride grants level for one object.
func (s *InMemoryStore) SetOverride(userID id.UserID, objectID id.ObjectID, level restriction.ClearanceLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overrides[userID] == nil {
		s.overrides[userID] = make(map[id.ObjectID]restriction.ClearanceLevel)
	}
	s.overrides[userID][objectID] = level
}

func (s *InMemoryStore) GroupsForUser(_ context.Context, userID id.UserID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.groups[userID]), nil
}

func (s *InMemoryStore) OverridesForUser(_ context.Context, userID id.UserID) (map[id.ObjectID]restriction.ClearanceLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.overrides[userID]) == 0 {
		return nil, nil
	}
	return maps.Clone(s.overrides[userID]), nil
}
