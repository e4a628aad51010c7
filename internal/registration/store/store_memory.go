package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"dsnap/internal/registration/models"
	"dsnap/internal/registration/search"
	"dsnap/internal/sentinel"
	id "dsnap/pkg/domain"
)

// Error contract shared by every registration store:
// - sentinel.ErrNotFound when the record does not exist
// - sentinel.ErrAlreadyUsed when Create sees a duplicate ID
// - wrapped infrastructure errors otherwise
// Records are copied on the way in and out; callers never share documents with a store.

// InMemoryStore keeps registrations in a map guarded by a RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.RegistrationID]*models.Record
}

// NewInMemory constructs an empty in-memory registration store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.RegistrationID]*models.Record)}
}

func (s *InMemoryStore) Create(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, recordID id.RegistrationID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *InMemoryStore) List(_ context.Context, filter search.Filter) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Record, 0, len(s.records))
	for _, record := range s.records {
		if filter.Match(record.LatestData) {
			matched = append(matched, record.Clone())
		}
	}
	slices.SortFunc(matched, func(a, b *models.Record) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return matched, nil
}

// Update applies mutate to a copy under the write lock and stores the result
// only when mutate succeeds.
func (s *InMemoryStore) Update(_ context.Context, recordID id.RegistrationID, mutate func(*models.Record) error) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := existing.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	s.records[recordID] = working.Clone()
	return working, nil
}

func (s *InMemoryStore) Delete(_ context.Context, recordID id.RegistrationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[recordID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, recordID)
	return nil
}
