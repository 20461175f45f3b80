// Package store provides senior record lookups over the external record
// store. The memory implementation backs development and tests; Postgres is
// the production path.
package store

import (
	"context"
	"sync"

	"botica/internal/identity/models"
	"botica/pkg/domain"
	"botica/pkg/platform/sentinel"
)

// InMemorySeniorStore holds senior records in process memory.
type InMemorySeniorStore struct {
	mu      sync.RWMutex
	seniors map[domain.SeniorID]*models.Senior
}

// NewMemory creates an empty in-memory senior store.
func NewMemory() *InMemorySeniorStore {
	return &InMemorySeniorStore{seniors: make(map[domain.SeniorID]*models.Senior)}
}

// Seed inserts or replaces a record; test and development helper.
func (s *InMemorySeniorStore) Seed(senior *models.Senior) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *senior
	s.seniors[senior.ID] = &copied
}

// GetByID returns the senior record or sentinel.ErrNotFound.
func (s *InMemorySeniorStore) GetByID(_ context.Context, id domain.SeniorID) (*models.Senior, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	senior, ok := s.seniors[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *senior
	return &copied, nil
}
