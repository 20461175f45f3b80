package ledger

import (
	"context"
	"sync"

	"botica/pkg/domain"
)

// InMemoryStore keeps ledger entries in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewInMemoryStore creates an empty memory sink.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Append records the entry.
func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// ListByOrder returns all entries journaled for an order, in append order.
func (s *InMemoryStore) ListByOrder(_ context.Context, orderID domain.OrderID) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, e := range s.entries {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out
}
