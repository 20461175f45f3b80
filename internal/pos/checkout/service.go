// Package checkout turns a cart into a persisted order, applies the senior
// discount for verified identities, and decrements per-item stock.
//
// The order header, its lines, and each stock write are independent store
// calls with no rollback. A header or line failure aborts the checkout; a
// stock write failure is journaled and surfaced as a warning but does not
// abort, and previously applied decrements are never reverted.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"botica/internal/ledger"
	"botica/internal/pos/discount"
	"botica/internal/pos/metrics"
	"botica/internal/pos/models"
	"botica/pkg/domain"
	dErrors "botica/pkg/domain-errors"
)

// OrderStore persists order headers, lines, and stock levels.
type OrderStore interface {
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderLines(ctx context.Context, orderID domain.OrderID, lines []models.OrderLine) error
	GetItemStock(ctx context.Context, itemID domain.ItemID) (int, error)
	SetItemStock(ctx context.Context, itemID domain.ItemID, level int) error
}

// LedgerPublisher journals intended stock deltas for reconciliation.
type LedgerPublisher interface {
	Emit(ctx context.Context, entry ledger.Entry) error
}

// StockWarning reports one item whose stock could not be decremented. The
// order itself still completed.
type StockWarning struct {
	ItemID domain.ItemID `json:"itemId"`
	Reason string        `json:"reason"`
}

// Result is a completed checkout with any stock warnings.
type Result struct {
	Order         *models.Order
	StockWarnings []StockWarning
}

// Service executes checkouts.
type Service struct {
	store   OrderStore
	journal LedgerPublisher
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the order timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a checkout service.
func New(store OrderStore, journal LedgerPublisher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("order store is required")
	}
	if journal == nil {
		return nil, fmt.Errorf("ledger publisher is required")
	}

	s := &Service{
		store:   store,
		journal: journal,
		logger:  slog.Default(),
		tracer:  otel.Tracer("botica/pos/checkout"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Checkout persists the order and decrements stock. seniorID, when present,
// must be a verified identity; it alone decides the discount.
func (s *Service) Checkout(ctx context.Context, lines []models.CartLine, seniorID *domain.SeniorID, note string) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "pos.checkout", trace.WithAttributes(
		attribute.Int("cart.lines", len(lines)),
		attribute.Bool("cart.discounted", seniorID != nil),
	))
	defer span.End()

	if len(lines) == 0 {
		return nil, dErrors.New(dErrors.CodeEmptyCart, "cart must contain at least one line")
	}
	for _, line := range lines {
		if line.ItemID.IsNil() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "cart line is missing an item id")
		}
		if line.Quantity <= 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "cart line quantity must be positive")
		}
		if line.UnitPrice < 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "cart line unit price cannot be negative")
		}
	}

	order := s.buildOrder(lines, seniorID, note)
	span.SetAttributes(attribute.String("order.id", order.ID.String()))

	if err := s.store.InsertOrder(ctx, order); err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert order")
	}
	if err := s.store.InsertOrderLines(ctx, order.ID, order.Lines); err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert order lines")
	}

	warnings := s.decrementStock(ctx, order)

	if s.metrics != nil {
		s.metrics.RecordOrder(order.DiscountedAmount, order.HasDiscount)
	}
	s.logger.InfoContext(ctx, "checkout completed",
		"order_id", order.ID,
		"total_amount", order.TotalAmount,
		"discounted_amount", order.DiscountedAmount,
		"has_discount", order.HasDiscount,
		"stock_warnings", len(warnings),
	)

	return &Result{Order: order, StockWarnings: warnings}, nil
}

func (s *Service) buildOrder(lines []models.CartLine, seniorID *domain.SeniorID, note string) *models.Order {
	orderLines := make([]models.OrderLine, 0, len(lines))
	var total float64
	for _, line := range lines {
		lineTotal := line.Total()
		total += lineTotal
		orderLines = append(orderLines, models.OrderLine{
			ItemID:     line.ItemID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			TotalPrice: lineTotal,
		})
	}
	total = discount.Round2(total)

	quote := discount.Compute(total, seniorID != nil)

	return &models.Order{
		ID:               domain.NewOrderID(),
		SeniorID:         seniorID,
		TotalAmount:      quote.BaseAmount,
		DiscountedAmount: quote.FinalAmount,
		HasDiscount:      seniorID != nil,
		Status:           models.OrderStatusCompleted,
		Note:             note,
		CreatedAt:        s.now().UTC(),
		Lines:            orderLines,
	}
}

// decrementStock applies each line's delta against freshly fetched stock.
// The intended delta is journaled before the write; failures are journaled,
// logged, and surfaced as warnings without aborting the other lines.
func (s *Service) decrementStock(ctx context.Context, order *models.Order) []StockWarning {
	var warnings []StockWarning

	for _, line := range order.Lines {
		current, err := s.store.GetItemStock(ctx, line.ItemID)
		if err != nil {
			warnings = append(warnings, s.stockFailure(ctx, order.ID, line, 0, 0,
				fmt.Errorf("stock lookup failed: %w", err)))
			continue
		}

		newLevel := current - line.Quantity
		if newLevel < 0 {
			s.logger.WarnContext(ctx, "stock underflow clamped to zero",
				"order_id", order.ID,
				"item_id", line.ItemID,
				"stock", current,
				"quantity", line.Quantity,
			)
			newLevel = 0
		}

		s.emitLedger(ctx, ledger.Entry{
			OrderID:    order.ID,
			ItemID:     line.ItemID,
			Delta:      -line.Quantity,
			PriorStock: current,
			NewStock:   newLevel,
		})

		if err := s.store.SetItemStock(ctx, line.ItemID, newLevel); err != nil {
			warnings = append(warnings, s.stockFailure(ctx, order.ID, line, current, newLevel,
				fmt.Errorf("stock write failed: %w", err)))
			continue
		}

		s.emitLedger(ctx, ledger.Entry{
			OrderID:    order.ID,
			ItemID:     line.ItemID,
			Delta:      -line.Quantity,
			PriorStock: current,
			NewStock:   newLevel,
			Applied:    true,
		})
	}

	return warnings
}

func (s *Service) stockFailure(ctx context.Context, orderID domain.OrderID, line models.OrderLine, prior, intended int, err error) StockWarning {
	s.logger.ErrorContext(ctx, "stock update skipped",
		"order_id", orderID,
		"item_id", line.ItemID,
		"quantity", line.Quantity,
		"error", err,
	)
	if s.metrics != nil {
		s.metrics.RecordStockFailure()
	}
	s.emitLedger(ctx, ledger.Entry{
		OrderID:    orderID,
		ItemID:     line.ItemID,
		Delta:      -line.Quantity,
		PriorStock: prior,
		NewStock:   intended,
		FailReason: err.Error(),
	})
	return StockWarning{ItemID: line.ItemID, Reason: err.Error()}
}

func (s *Service) emitLedger(ctx context.Context, entry ledger.Entry) {
	if err := s.journal.Emit(ctx, entry); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "failed to journal stock delta",
			"order_id", entry.OrderID,
			"item_id", entry.ItemID,
			"error", err,
		)
	}
}
