package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"botica/internal/ledger"
	"botica/internal/pos/models"
	"botica/internal/pos/store"
	"botica/pkg/domain"
	dErrors "botica/pkg/domain-errors"
)

// flakyStore wraps the memory store with injectable failures.
type flakyStore struct {
	*store.InMemoryOrderStore
	insertOrderErr error
	insertLinesErr error
	setStockErrs   map[domain.ItemID]error
	orderInserts   int
}

func (f *flakyStore) InsertOrder(ctx context.Context, order *models.Order) error {
	if f.insertOrderErr != nil {
		return f.insertOrderErr
	}
	f.orderInserts++
	return f.InMemoryOrderStore.InsertOrder(ctx, order)
}

func (f *flakyStore) InsertOrderLines(ctx context.Context, orderID domain.OrderID, lines []models.OrderLine) error {
	if f.insertLinesErr != nil {
		return f.insertLinesErr
	}
	return f.InMemoryOrderStore.InsertOrderLines(ctx, orderID, lines)
}

func (f *flakyStore) SetItemStock(ctx context.Context, itemID domain.ItemID, level int) error {
	if err := f.setStockErrs[itemID]; err != nil {
		return err
	}
	return f.InMemoryOrderStore.SetItemStock(ctx, itemID, level)
}

type CheckoutServiceSuite struct {
	suite.Suite
	store   *flakyStore
	journal *ledger.InMemoryStore
	service *Service

	itemA domain.ItemID
	itemB domain.ItemID
}

func TestCheckoutServiceSuite(t *testing.T) {
	suite.Run(t, new(CheckoutServiceSuite))
}

func (s *CheckoutServiceSuite) SetupTest() {
	s.store = &flakyStore{
		InMemoryOrderStore: store.NewMemory(),
		setStockErrs:       make(map[domain.ItemID]error),
	}
	s.journal = ledger.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	pub, err := ledger.NewPublisher(s.journal, ledger.WithLogger(logger))
	s.Require().NoError(err)

	s.service, err = New(s.store, pub,
		WithLogger(logger),
		WithClock(func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }),
	)
	s.Require().NoError(err)

	s.itemA = domain.ItemID(uuid.New())
	s.itemB = domain.ItemID(uuid.New())
	s.store.SeedStock(s.itemA, 10)
	s.store.SeedStock(s.itemB, 4)
}

func (s *CheckoutServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, &ledger.Publisher{})
		s.Error(err)
	})

	s.Run("nil journal returns error", func() {
		_, err := New(s.store, nil)
		s.Error(err)
	})
}

// Cart of 2 x 50.00 with a verified senior: total 100.00, discounted 80.00,
// one frozen line of 100.00, stock decremented by 2.
func (s *CheckoutServiceSuite) TestHappyPathDiscount() {
	seniorID := domain.SeniorID(uuid.New())
	lines := []models.CartLine{{ItemID: s.itemA, Quantity: 2, UnitPrice: 50.00}}

	res, err := s.service.Checkout(context.Background(), lines, &seniorID, "")
	s.Require().NoError(err)
	s.Empty(res.StockWarnings)

	order := res.Order
	s.Equal(100.00, order.TotalAmount)
	s.Equal(80.00, order.DiscountedAmount)
	s.True(order.HasDiscount)
	s.Equal(models.OrderStatusCompleted, order.Status)
	s.Require().Len(order.Lines, 1)
	s.Equal(100.00, order.Lines[0].TotalPrice)

	stock, err := s.store.GetItemStock(context.Background(), s.itemA)
	s.Require().NoError(err)
	s.Equal(8, stock)

	entries := s.journal.ListByOrder(context.Background(), order.ID)
	s.Require().Len(entries, 2, "intent and applied entries")
	s.False(entries[0].Applied)
	s.True(entries[1].Applied)
	s.Equal(-2, entries[1].Delta)
	s.Equal(10, entries[1].PriorStock)
	s.Equal(8, entries[1].NewStock)
}

func (s *CheckoutServiceSuite) TestNoDiscountWithoutIdentity() {
	lines := []models.CartLine{{ItemID: s.itemA, Quantity: 1, UnitPrice: 37.50}}

	res, err := s.service.Checkout(context.Background(), lines, nil, "walk-in")
	s.Require().NoError(err)

	s.Equal(37.50, res.Order.TotalAmount)
	s.Equal(37.50, res.Order.DiscountedAmount)
	s.False(res.Order.HasDiscount)
	s.Nil(res.Order.SeniorID)
}

func (s *CheckoutServiceSuite) TestOrderTotalInvariant() {
	lines := []models.CartLine{
		{ItemID: s.itemA, Quantity: 3, UnitPrice: 12.25},
		{ItemID: s.itemB, Quantity: 2, UnitPrice: 8.40},
	}
	seniorID := domain.SeniorID(uuid.New())

	res, err := s.service.Checkout(context.Background(), lines, &seniorID, "")
	s.Require().NoError(err)

	var sum float64
	for _, line := range res.Order.Lines {
		sum += line.TotalPrice
	}
	s.InDelta(res.Order.TotalAmount, sum, 0.001)
	s.LessOrEqual(res.Order.DiscountedAmount, res.Order.TotalAmount)
}

func (s *CheckoutServiceSuite) TestEmptyCartRejectedBeforeAnyWrite() {
	_, err := s.service.Checkout(context.Background(), nil, nil, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeEmptyCart))
	s.Zero(s.store.orderInserts, "no store write may happen for an empty cart")
}

func (s *CheckoutServiceSuite) TestInvalidLinesRejected() {
	cases := []models.CartLine{
		{ItemID: s.itemA, Quantity: 0, UnitPrice: 5},
		{ItemID: s.itemA, Quantity: -1, UnitPrice: 5},
		{ItemID: s.itemA, Quantity: 1, UnitPrice: -0.01},
		{Quantity: 1, UnitPrice: 5},
	}
	for _, line := range cases {
		_, err := s.service.Checkout(context.Background(), []models.CartLine{line}, nil, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}

func (s *CheckoutServiceSuite) TestOrderInsertFailureAborts() {
	s.store.insertOrderErr = errors.New("connection reset")

	lines := []models.CartLine{{ItemID: s.itemA, Quantity: 1, UnitPrice: 10}}
	_, err := s.service.Checkout(context.Background(), lines, nil, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	stock, getErr := s.store.GetItemStock(context.Background(), s.itemA)
	s.Require().NoError(getErr)
	s.Equal(10, stock, "stock must be untouched when the header insert fails")
}

func (s *CheckoutServiceSuite) TestLineInsertFailureAborts() {
	s.store.insertLinesErr = errors.New("connection reset")

	lines := []models.CartLine{{ItemID: s.itemA, Quantity: 1, UnitPrice: 10}}
	_, err := s.service.Checkout(context.Background(), lines, nil, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

// A stock write failure on one item is tolerated: the order completes, the
// other item is still decremented, and the failure is journaled.
func (s *CheckoutServiceSuite) TestStockFailureDoesNotAbort() {
	s.store.setStockErrs[s.itemA] = errors.New("deadlock detected")

	lines := []models.CartLine{
		{ItemID: s.itemA, Quantity: 1, UnitPrice: 10},
		{ItemID: s.itemB, Quantity: 2, UnitPrice: 5},
	}
	res, err := s.service.Checkout(context.Background(), lines, nil, "")
	s.Require().NoError(err)

	s.Require().Len(res.StockWarnings, 1)
	s.Equal(s.itemA, res.StockWarnings[0].ItemID)

	stockB, err := s.store.GetItemStock(context.Background(), s.itemB)
	s.Require().NoError(err)
	s.Equal(2, stockB)

	var failed int
	for _, e := range s.journal.ListByOrder(context.Background(), res.Order.ID) {
		if e.FailReason != "" {
			failed++
		}
	}
	s.Equal(1, failed)
}

func (s *CheckoutServiceSuite) TestUnknownItemStockLookupWarns() {
	ghost := domain.ItemID(uuid.New())
	lines := []models.CartLine{{ItemID: ghost, Quantity: 1, UnitPrice: 3}}

	res, err := s.service.Checkout(context.Background(), lines, nil, "")
	s.Require().NoError(err)
	s.Require().Len(res.StockWarnings, 1)
	s.Contains(res.StockWarnings[0].Reason, "stock lookup failed")
}

func (s *CheckoutServiceSuite) TestStockUnderflowClampsToZero() {
	lines := []models.CartLine{{ItemID: s.itemB, Quantity: 9, UnitPrice: 2}}

	res, err := s.service.Checkout(context.Background(), lines, nil, "")
	s.Require().NoError(err)
	s.Empty(res.StockWarnings)

	stock, err := s.store.GetItemStock(context.Background(), s.itemB)
	s.Require().NoError(err)
	s.Equal(0, stock)
}
