package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"botica/internal/pos/models"
	"botica/pkg/domain"
	"botica/pkg/platform/sentinel"
)

// PostgresOrderStore persists orders and stock levels in PostgreSQL.
type PostgresOrderStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed order store.
func NewPostgres(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

func (s *PostgresOrderStore) InsertOrder(ctx context.Context, order *models.Order) error {
	const query = `
		INSERT INTO orders (id, senior_id, total_amount, discounted_amount, has_discount, status, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var seniorID any
	if order.SeniorID != nil {
		seniorID = uuid.UUID(*order.SeniorID)
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(order.ID),
		seniorID,
		order.TotalAmount,
		order.DiscountedAmount,
		order.HasDiscount,
		string(order.Status),
		order.Note,
		order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", order.ID, err)
	}
	return nil
}

func (s *PostgresOrderStore) InsertOrderLines(ctx context.Context, orderID domain.OrderID, lines []models.OrderLine) error {
	const query = `
		INSERT INTO order_lines (order_id, item_id, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5)`

	for _, line := range lines {
		_, err := s.db.ExecContext(ctx, query,
			uuid.UUID(orderID),
			uuid.UUID(line.ItemID),
			line.Quantity,
			line.UnitPrice,
			line.TotalPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order line for item %s: %w", line.ItemID, err)
		}
	}
	return nil
}

func (s *PostgresOrderStore) GetItemStock(ctx context.Context, itemID domain.ItemID) (int, error) {
	const query = `SELECT stock FROM medicines WHERE id = $1`

	var level int
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(itemID)).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, sentinel.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get stock for item %s: %w", itemID, err)
	}
	return level, nil
}

func (s *PostgresOrderStore) SetItemStock(ctx context.Context, itemID domain.ItemID, level int) error {
	const query = `UPDATE medicines SET stock = $2 WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, uuid.UUID(itemID), level)
	if err != nil {
		return fmt.Errorf("set stock for item %s: %w", itemID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
