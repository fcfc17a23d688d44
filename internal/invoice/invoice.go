package invoice

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("invoice not found")
	ErrInvalidType = errors.New("invalid invoice type")
)

// Type is the fiscal category printed on the invoice.
type Type string

const (
	TypeA Type = "A"
	TypeB Type = "B"
	TypeC Type = "C"
)

func (t Type) Valid() bool {
	switch t {
	case TypeA, TypeB, TypeC:
		return true
	}

	return false
}

// Invoice is the accounting document issued once per sale.
type Invoice struct {
	ID             int64
	SaleID         int64
	Sequence       int64
	Number         string // PREFIX-NNNNNN
	ClientName     string
	ClientDocument string
	Type           Type
	Reference      uuid.UUID
	CreatedAt      time.Time
}

// FormatNumber renders the human-readable invoice number, e.g. FAC-000042.
func FormatNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%06d", prefix, seq)
}
