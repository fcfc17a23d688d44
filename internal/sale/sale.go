package sale

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ventas/internal/invoice"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNoProducts        = errors.New("a sale needs at least one product")
)

// StockError reports the first product whose stock cannot cover the
// requested quantity.
type StockError struct {
	ProductID int64
	Name      string
	Available int
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q (id %d): available %d, requested %d",
		e.Name, e.ProductID, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// Buyer is the summary of the user a sale is recorded against.
type Buyer struct {
	ID    int64
	Name  string
	Email string
	Phone string
}

// Item is one distinct product of a sale with the quantity requested for it.
type Item struct {
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

// Sale is a completed transaction. Total is fixed when the sale is created
// and recomputed only when its product list is replaced.
type Sale struct {
	ID        int64
	UserID    int64
	Buyer     *Buyer // Loaded via JOIN
	Items     []Item
	Total     decimal.Decimal
	Notes     string
	Invoice   *invoice.Invoice // Loaded via LEFT JOIN
	CreatedAt time.Time
	UpdatedAt *time.Time
}
