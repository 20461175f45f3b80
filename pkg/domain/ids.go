// Package domain holds shared identifier and value types. Typed IDs prevent
// cross-entity assignment at compile time; construct them via the Parse
// functions at trust boundaries so invalid or nil UUIDs are rejected before
// they reach services.
package domain

import (
	"github.com/google/uuid"

	dErrors "botica/pkg/domain-errors"
)

// SeniorID identifies an enrolled senior-citizen record.
type SeniorID uuid.UUID

// OrderID identifies a completed point-of-sale order.
type OrderID uuid.UUID

// ItemID identifies a catalog item (medicine) with a stock level.
type ItemID uuid.UUID

// DeviceID identifies a fingerprint scanner device as reported by the
// scanner capability. Device serials are vendor strings, not UUIDs.
type DeviceID string

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be nil")
	}
	return u, nil
}

// ParseSeniorID constructs a SeniorID from external input.
func ParseSeniorID(s string) (SeniorID, error) {
	u, err := parseUUID(s, "senior_id")
	return SeniorID(u), err
}

// ParseOrderID constructs an OrderID from external input.
func ParseOrderID(s string) (OrderID, error) {
	u, err := parseUUID(s, "order_id")
	return OrderID(u), err
}

// ParseItemID constructs an ItemID from external input.
func ParseItemID(s string) (ItemID, error) {
	u, err := parseUUID(s, "item_id")
	return ItemID(u), err
}

func (id SeniorID) String() string { return uuid.UUID(id).String() }
func (id OrderID) String() string  { return uuid.UUID(id).String() }
func (id ItemID) String() string   { return uuid.UUID(id).String() }

func (id SeniorID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id OrderID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ItemID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// Text marshalling keeps the canonical UUID string form on the wire; defined
// types do not inherit it from uuid.UUID.

func (id SeniorID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id OrderID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id ItemID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }

func (id *SeniorID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *OrderID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *ItemID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// NewOrderID mints a fresh order identifier.
func NewOrderID() OrderID { return OrderID(uuid.New()) }
