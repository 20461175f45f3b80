package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botica/internal/pos/models"
	"botica/pkg/domain"
	"botica/pkg/platform/sentinel"
)

func TestInMemoryOrderStore_Orders(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	order := &models.Order{
		ID:          domain.NewOrderID(),
		TotalAmount: 50,
		Status:      models.OrderStatusCompleted,
	}
	require.NoError(t, s.InsertOrder(ctx, order))

	t.Run("duplicate insert conflicts", func(t *testing.T) {
		assert.ErrorIs(t, s.InsertOrder(ctx, order), sentinel.ErrConflict)
	})

	t.Run("lines require existing order", func(t *testing.T) {
		err := s.InsertOrderLines(ctx, domain.NewOrderID(), nil)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("lines round-trip", func(t *testing.T) {
		itemID := domain.ItemID(uuid.New())
		lines := []models.OrderLine{{ItemID: itemID, Quantity: 2, UnitPrice: 25, TotalPrice: 50}}
		require.NoError(t, s.InsertOrderLines(ctx, order.ID, lines))

		got, err := s.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, got.Lines, 1)
		assert.Equal(t, itemID, got.Lines[0].ItemID)
	})
}

func TestInMemoryOrderStore_Stock(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	itemID := domain.ItemID(uuid.New())

	t.Run("unknown item not found", func(t *testing.T) {
		_, err := s.GetItemStock(ctx, itemID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		assert.ErrorIs(t, s.SetItemStock(ctx, itemID, 5), sentinel.ErrNotFound)
	})

	t.Run("seeded stock reads and writes", func(t *testing.T) {
		s.SeedStock(itemID, 12)

		level, err := s.GetItemStock(ctx, itemID)
		require.NoError(t, err)
		assert.Equal(t, 12, level)

		require.NoError(t, s.SetItemStock(ctx, itemID, 9))
		level, err = s.GetItemStock(ctx, itemID)
		require.NoError(t, err)
		assert.Equal(t, 9, level)
	})
}
