// Package store persists orders, order lines, and stock levels. The memory
// implementation backs development and tests; Postgres is the production
// path. Writes are deliberately independent statements, not one database
// transaction: the checkout service journals stock deltas for
// reconciliation instead.
package store

import (
	"context"
	"sync"

	"botica/internal/pos/models"
	"botica/pkg/domain"
	"botica/pkg/platform/sentinel"
)

// InMemoryOrderStore holds orders and stock levels in process memory.
type InMemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[domain.OrderID]*models.Order
	lines  map[domain.OrderID][]models.OrderLine
	stock  map[domain.ItemID]int
}

// NewMemory creates an empty in-memory order store.
func NewMemory() *InMemoryOrderStore {
	return &InMemoryOrderStore{
		orders: make(map[domain.OrderID]*models.Order),
		lines:  make(map[domain.OrderID][]models.OrderLine),
		stock:  make(map[domain.ItemID]int),
	}
}

// SeedStock sets the stock level for an item; test and development helper.
func (s *InMemoryOrderStore) SeedStock(itemID domain.ItemID, level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[itemID] = level
}

// InsertOrder records the order header.
func (s *InMemoryOrderStore) InsertOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return sentinel.ErrConflict
	}
	header := *order
	header.Lines = nil
	s.orders[order.ID] = &header
	return nil
}

// InsertOrderLines records the frozen lines for an order.
func (s *InMemoryOrderStore) InsertOrderLines(_ context.Context, orderID domain.OrderID, lines []models.OrderLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[orderID]; !exists {
		return sentinel.ErrNotFound
	}
	s.lines[orderID] = append([]models.OrderLine(nil), lines...)
	return nil
}

// GetItemStock returns the current stock level for an item.
func (s *InMemoryOrderStore) GetItemStock(_ context.Context, itemID domain.ItemID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	level, ok := s.stock[itemID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	return level, nil
}

// SetItemStock writes a new stock level for an item.
func (s *InMemoryOrderStore) SetItemStock(_ context.Context, itemID domain.ItemID, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stock[itemID]; !ok {
		return sentinel.ErrNotFound
	}
	s.stock[itemID] = level
	return nil
}

// GetOrder returns a stored order with its lines; test helper.
func (s *InMemoryOrderStore) GetOrder(_ context.Context, orderID domain.OrderID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *order
	copied.Lines = append([]models.OrderLine(nil), s.lines[orderID]...)
	return &copied, nil
}
