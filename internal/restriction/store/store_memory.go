package store

import (
	"context"
	"sync"
	"time"

	"archgate/internal/restriction"
	id "archgate/pkg/domain"
)

// InMemoryStore holds restriction records for tests and single-node demos.
// Reads apply the same active and end-date filters as the SQL queries. Every
// Put bumps the object's version for that source.
type InMemoryStore struct {
	mu              sync.RWMutex
	classifications map[id.ObjectID][]restriction.ClassificationRecord
	embargoes       map[id.ObjectID][]restriction.EmbargoRecord
	donors          map[id.ObjectID][]restriction.DonorRestriction
	redactions      map[id.ObjectID][]restriction.RedactionRecord
	versions        map[id.ObjectID]restriction.VersionVector
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		classifications: make(map[id.ObjectID][]restriction.ClassificationRecord),
		embargoes:       make(map[id.ObjectID][]restriction.EmbargoRecord),
		donors:          make(map[id.ObjectID][]restriction.DonorRestriction),
		redactions:      make(map[id.ObjectID][]restriction.RedactionRecord),
		versions:        make(map[id.ObjectID]restriction.VersionVector),
	}
}

func (s *InMemoryStore) PutClassification(r restriction.ClassificationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifications[r.ObjectID] = append(s.classifications[r.ObjectID], r)
	s.bump(r.ObjectID, restriction.KindClassification)
}

func (s *InMemoryStore) PutEmbargo(r restriction.EmbargoRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embargoes[r.ObjectID] = append(s.embargoes[r.ObjectID], r)
	s.bump(r.ObjectID, restriction.KindEmbargo)
}

func (s *InMemoryStore) PutDonor(r restriction.DonorRestriction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.donors[r.ObjectID] = append(s.donors[r.ObjectID], r)
	s.bump(r.ObjectID, restriction.KindDonor)
}

func (s *InMemoryStore) PutRedaction(r restriction.RedactionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redactions[r.ObjectID] = append(s.redactions[r.ObjectID], r)
	s.bump(r.ObjectID, restriction.KindRedaction)
}

// ClearObject removes every record for the object and bumps all versions.
func (s *InMemoryStore) ClearObject(objectID id.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.classifications, objectID)
	delete(s.embargoes, objectID)
	delete(s.donors, objectID)
	delete(s.redactions, objectID)
	for _, k := range restriction.Kinds {
		s.bump(objectID, k)
	}
}

func (s *InMemoryStore) bump(objectID id.ObjectID, kind restriction.Kind) {
	v := s.versions[objectID]
	switch kind {
	case restriction.KindClassification:
		v.Classification++
	case restriction.KindEmbargo:
		v.Embargo++
	case restriction.KindDonor:
		v.Donor++
	case restriction.KindRedaction:
		v.Redaction++
	}
	s.versions[objectID] = v
}

func (s *InMemoryStore) ReadClassifications(_ context.Context, objectID id.ObjectID, _ time.Time) ([]restriction.ClassificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []restriction.ClassificationRecord
	for _, r := range s.classifications[objectID] {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ReadEmbargoes(_ context.Context, objectID id.ObjectID, asOf time.Time) ([]restriction.EmbargoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []restriction.EmbargoRecord
	for _, r := range s.embargoes[objectID] {
		if r.InForce(asOf) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ReadDonorRestrictions(_ context.Context, objectID id.ObjectID, asOf time.Time) ([]restriction.DonorRestriction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []restriction.DonorRestriction
	for _, r := range s.donors[objectID] {
		if !r.Expired(asOf) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ReadRedactions(_ context.Context, objectID id.ObjectID, _ time.Time) ([]restriction.RedactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []restriction.RedactionRecord
	for _, r := range s.redactions[objectID] {
		if r.HasRedaction {
			out = append(out, r)
		}
	}
	return out, nil
}

// Versions implements restriction.VersionReader.
func (s *InMemoryStore) Versions(_ context.Context, objectID id.ObjectID) (restriction.VersionVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[objectID], nil
}

// Readers exposes the store as the four source readers.
func (s *InMemoryStore) Readers() restriction.Readers {
	return restriction.Readers{
		Classification: restriction.ReaderFunc[restriction.ClassificationRecord](s.ReadClassifications),
		Embargo:        restriction.ReaderFunc[restriction.EmbargoRecord](s.ReadEmbargoes),
		Donor:          restriction.ReaderFunc[restriction.DonorRestriction](s.ReadDonorRestrictions),
		Redaction:      restriction.ReaderFunc[restriction.RedactionRecord](s.ReadRedactions),
	}
}
