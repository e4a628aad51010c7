package store

import (
	"context"
	"fmt"
	"sync"

	"dsnap/internal/sentinel"
	"dsnap/internal/staff/models"
	id "dsnap/pkg/domain"
	"dsnap/pkg/platform/strings"
)

// Error contract shared by staff stores:
// - sentinel.ErrNotFound when the account does not exist
// - sentinel.ErrAlreadyUsed when the ID or username (case-insensitively) is taken
// - wrapped infrastructure errors otherwise

// InMemoryStore keeps staff accounts in memory for tests and single-process runs.
type InMemoryStore struct {
	mu         sync.RWMutex
	staff      map[id.StaffID]*models.Staff
	byUsername map[string]id.StaffID
}

// NewInMemory constructs an empty in-memory staff store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		staff:      make(map[id.StaffID]*models.Staff),
		byUsername: make(map[string]id.StaffID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, staff *models.Staff) error {
	if staff == nil {
		return fmt.Errorf("staff is required")
	}
	key := strings.TrimLower(staff.Username)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.staff[staff.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	if _, ok := s.byUsername[key]; ok {
		return sentinel.ErrAlreadyUsed
	}
	copied := *staff
	s.staff[staff.ID] = &copied
	s.byUsername[key] = staff.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, staffID id.StaffID) (*models.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	staff, ok := s.staff[staffID]
	if !ok {
		return nil, fmt.Errorf("staff not found: %w", sentinel.ErrNotFound)
	}
	copied := *staff
	return &copied, nil
}

func (s *InMemoryStore) FindByUsername(_ context.Context, username string) (*models.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	staffID, ok := s.byUsername[strings.TrimLower(username)]
	if !ok {
		return nil, fmt.Errorf("staff not found: %w", sentinel.ErrNotFound)
	}
	copied := *s.staff[staffID]
	return &copied, nil
}

func (s *InMemoryStore) FindByIDs(_ context.Context, ids []id.StaffID) ([]*models.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*models.Staff, 0, len(ids))
	for _, staffID := range ids {
		if staff, ok := s.staff[staffID]; ok {
			copied := *staff
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *InMemoryStore) SetActive(_ context.Context, staffID id.StaffID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	staff, ok := s.staff[staffID]
	if !ok {
		return fmt.Errorf("staff not found: %w", sentinel.ErrNotFound)
	}
	staff.Active = active
	return nil
}
