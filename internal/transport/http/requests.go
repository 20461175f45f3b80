package httptransport

import (
	"botica/internal/pos/models"
	"botica/pkg/domain"
	dErrors "botica/pkg/domain-errors"
)

// QuoteRequest asks for a discount preview.
type QuoteRequest struct {
	BaseAmount float64 `json:"baseAmount"`
	Verified   bool    `json:"verified"`
}

func (r QuoteRequest) Validate() error {
	if r.BaseAmount < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "baseAmount cannot be negative")
	}
	return nil
}

// CheckoutLine is one cart line on the wire.
type CheckoutLine struct {
	ItemID    string  `json:"itemId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// CheckoutRequest confirms a checkout.
type CheckoutRequest struct {
	Lines    []CheckoutLine `json:"lines"`
	SeniorID string         `json:"seniorId,omitempty"`
	Note     string         `json:"note,omitempty"`
}

// ParsedLines converts wire lines into domain cart lines, validating IDs at
// the trust boundary.
func (r CheckoutRequest) ParsedLines() ([]models.CartLine, error) {
	lines := make([]models.CartLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		itemID, err := domain.ParseItemID(l.ItemID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, models.CartLine{
			ItemID:    itemID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return lines, nil
}

// ParsedSeniorID returns the verified identity, or nil for a plain sale.
func (r CheckoutRequest) ParsedSeniorID() (*domain.SeniorID, error) {
	if r.SeniorID == "" {
		return nil, nil
	}
	id, err := domain.ParseSeniorID(r.SeniorID)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
