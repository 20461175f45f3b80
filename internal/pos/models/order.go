// Package models defines the point-of-sale order entities.
package models

import (
	"time"

	"botica/internal/pos/discount"
	"botica/pkg/domain"
)

// CartLine is one item the cashier rang up. Mutable until checkout, then
// frozen into an OrderLine.
type CartLine struct {
	ItemID    domain.ItemID `json:"itemId"`
	Quantity  int           `json:"quantity"`
	UnitPrice float64       `json:"unitPrice"`
}

// Total returns the line total at current quantity and unit price.
func (l CartLine) Total() float64 {
	return discount.Round2(l.UnitPrice * float64(l.Quantity))
}

// OrderStatus is the lifecycle state of an order. Checkout only ever
// produces completed orders; cancellation and refunds live in the
// back-office system.
type OrderStatus string

const OrderStatusCompleted OrderStatus = "completed"

// OrderLine is a frozen cart line recorded with the order.
type OrderLine struct {
	ItemID     domain.ItemID `json:"itemId"`
	Quantity   int           `json:"quantity"`
	UnitPrice  float64       `json:"unitPrice"`
	TotalPrice float64       `json:"totalPrice"`
}

// Order is one completed checkout.
//
// Invariants: DiscountedAmount <= TotalAmount; HasDiscount iff SeniorID is
// set; the sum of line totals equals TotalAmount (pre-discount).
type Order struct {
	ID               domain.OrderID   `json:"id"`
	SeniorID         *domain.SeniorID `json:"seniorId,omitempty"`
	TotalAmount      float64          `json:"totalAmount"`
	DiscountedAmount float64          `json:"discountedAmount"`
	HasDiscount      bool             `json:"hasDiscount"`
	Status           OrderStatus      `json:"status"`
	Note             string           `json:"note,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	Lines            []OrderLine      `json:"lines"`
}
