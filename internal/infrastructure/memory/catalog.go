package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/vehiclematch/backend/internal/domain"
)

// CatalogStore keeps the active catalog in memory. Replace swaps the whole
// slice, so readers never observe a partially written catalog.
type CatalogStore struct {
	mu       sync.RWMutex
	vehicles []domain.Vehicle
}

// NewCatalogStore creates a store seeded with a copy of vehicles
func NewCatalogStore(vehicles []domain.Vehicle) *CatalogStore {
	return &CatalogStore{vehicles: slices.Clone(vehicles)}
}

// All returns the current catalog in load order
func (s *CatalogStore) All(ctx context.Context) ([]domain.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vehicles, nil
}

// Replace installs a copy of vehicles as the new catalog
func (s *CatalogStore) Replace(ctx context.Context, vehicles []domain.Vehicle) error {
	next := slices.Clone(vehicles)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles = next
	return nil
}

// Len returns the number of vehicles in the catalog
func (s *CatalogStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vehicles)
}
