// Package ledger journals intended stock mutations before they are applied.
// Stock writes at checkout are independent statements with no rollback, so
// the ledger is the reconciliation trail when a write fails or a process
// dies mid-checkout.
package ledger

import (
	"time"

	"botica/pkg/domain"
)

// Entry records one intended stock delta for one order line. Entries are
// emitted before the stock write and again after it with the outcome.
type Entry struct {
	OrderID    domain.OrderID `json:"orderId"`
	ItemID     domain.ItemID  `json:"itemId"`
	Delta      int            `json:"delta"`
	PriorStock int            `json:"priorStock"`
	NewStock   int            `json:"newStock"`
	Applied    bool           `json:"applied"`
	FailReason string         `json:"failReason,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
