package invoice

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=invoice
type Repository interface {
	// NextSequence must run inside a transaction; it serialises concurrent
	// issuers so numbers stay gapless.
	NextSequence(ctx context.Context) (int64, error)
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	GetBySale(ctx context.Context, saleID int64) (*Invoice, error)
	ListInvoices(ctx context.Context) ([]*Invoice, error)
}

type Service struct {
	repo   Repository
	prefix string
}

func NewService(repo Repository, prefix string) *Service {
	return &Service{repo: repo, prefix: prefix}
}

// WithRepository returns a copy of the service bound to repo, typically a
// store scoped to the caller's transaction.
func (s *Service) WithRepository(repo Repository) *Service {
	return &Service{repo: repo, prefix: s.prefix}
}

type CreateParams struct {
	SaleID         int64
	ClientName     string
	ClientDocument string
	Type           Type
}

// Create allocates the next invoice number and persists an invoice linked to
// params.SaleID.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Invoice, error) {
	if !params.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, params.Type)
	}

	seq, err := s.repo.NextSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocating invoice number: %w", err)
	}

	inv := &Invoice{
		SaleID:         params.SaleID,
		Sequence:       seq,
		Number:         FormatNumber(s.prefix, seq),
		ClientName:     params.ClientName,
		ClientDocument: params.ClientDocument,
		Type:           params.Type,
		Reference:      uuid.New(),
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("creating invoice %s: %w", inv.Number, err)
	}

	return inv, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) GetBySale(ctx context.Context, saleID int64) (*Invoice, error) {
	return s.repo.GetBySale(ctx, saleID)
}

func (s *Service) List(ctx context.Context) ([]*Invoice, error) {
	return s.repo.ListInvoices(ctx)
}
