//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"botica/internal/pos/models"
	"botica/internal/pos/store"
	"botica/pkg/domain"
	"botica/pkg/platform/sentinel"
	"botica/pkg/testutil/containers"
)

type PostgresOrderStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresOrderStore
}

func TestPostgresOrderStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresOrderStoreSuite))
}

func (s *PostgresOrderStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresOrderStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "order_lines", "orders", "medicines"))
}

func (s *PostgresOrderStoreSuite) seedMedicine(stock int) domain.ItemID {
	id := uuid.New()
	_, err := s.postgres.DB.ExecContext(context.Background(),
		`INSERT INTO medicines (id, name, stock) VALUES ($1, 'paracetamol 500mg', $2)`, id, stock)
	s.Require().NoError(err)
	return domain.ItemID(id)
}

func (s *PostgresOrderStoreSuite) TestInsertOrderWithLines() {
	ctx := context.Background()
	seniorID := domain.SeniorID(uuid.New())
	itemID := s.seedMedicine(10)

	order := &models.Order{
		ID:               domain.NewOrderID(),
		SeniorID:         &seniorID,
		TotalAmount:      100.00,
		DiscountedAmount: 80.00,
		HasDiscount:      true,
		Status:           models.OrderStatusCompleted,
		Note:             "booth 3",
		CreatedAt:        time.Now().UTC(),
	}
	s.Require().NoError(s.store.InsertOrder(ctx, order))

	lines := []models.OrderLine{{ItemID: itemID, Quantity: 2, UnitPrice: 50.00, TotalPrice: 100.00}}
	s.Require().NoError(s.store.InsertOrderLines(ctx, order.ID, lines))

	var count int
	err := s.postgres.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM order_lines WHERE order_id = $1`, uuid.UUID(order.ID)).Scan(&count)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresOrderStoreSuite) TestInsertOrderWithoutSenior() {
	ctx := context.Background()

	order := &models.Order{
		ID:               domain.NewOrderID(),
		TotalAmount:      37.50,
		DiscountedAmount: 37.50,
		Status:           models.OrderStatusCompleted,
		CreatedAt:        time.Now().UTC(),
	}
	s.Require().NoError(s.store.InsertOrder(ctx, order))

	var seniorID *string
	err := s.postgres.DB.QueryRowContext(ctx,
		`SELECT senior_id FROM orders WHERE id = $1`, uuid.UUID(order.ID)).Scan(&seniorID)
	s.Require().NoError(err)
	s.Nil(seniorID, "senior_id must be NULL for walk-in sales")
}

func (s *PostgresOrderStoreSuite) TestStockReadAndWrite() {
	ctx := context.Background()
	itemID := s.seedMedicine(12)

	level, err := s.store.GetItemStock(ctx, itemID)
	s.Require().NoError(err)
	s.Equal(12, level)

	s.Require().NoError(s.store.SetItemStock(ctx, itemID, 9))
	level, err = s.store.GetItemStock(ctx, itemID)
	s.Require().NoError(err)
	s.Equal(9, level)
}

func (s *PostgresOrderStoreSuite) TestStockUnknownItem() {
	ctx := context.Background()
	ghost := domain.ItemID(uuid.New())

	_, err := s.store.GetItemStock(ctx, ghost)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.SetItemStock(ctx, ghost, 5), sentinel.ErrNotFound)
}
