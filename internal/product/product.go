package product

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("product not found")
	ErrInvalid  = errors.New("invalid product")
)

// Product is an item of the catalogue. Stock is the on-hand quantity and is
// only decremented by the sale workflow.
type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	Stock     int
	Active    bool
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// UpsertParams carries one row of a catalogue import.
type UpsertParams struct {
	ID    int64
	Name  string
	Price decimal.Decimal
	Stock int
}
