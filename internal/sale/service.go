package sale

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrJamesThe3rd/ventas/internal/invoice"
	"github.com/MrJamesThe3rd/ventas/internal/product"
	"github.com/MrJamesThe3rd/ventas/internal/user"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=sale
type Repository interface {
	BeginCreate(ctx context.Context) (CreateTx, error)

	GetSale(ctx context.Context, id int64) (*Sale, error)
	ListSales(ctx context.Context) ([]*Sale, error)
	UpdateSale(ctx context.Context, s *Sale) error
	DeleteSale(ctx context.Context, id int64) error
}

// CreateTx is the unit of work for sale creation. Products returned by
// LockProducts stay locked until Commit or Rollback.
type CreateTx interface {
	LockProducts(ctx context.Context, ids []int64) ([]*product.Product, error)
	CreateSale(ctx context.Context, s *Sale) error
	DecrementStock(ctx context.Context, qty map[int64]int) error
	Invoices() invoice.Repository
	Commit() error
	Rollback() error
}

type UserDirectory interface {
	Get(ctx context.Context, id int64) (*user.User, error)
}

type ProductDirectory interface {
	FindByIDs(ctx context.Context, ids []int64) ([]*product.Product, error)
}

type Service struct {
	repo     Repository
	users    UserDirectory
	products ProductDirectory
	invoices *invoice.Service
}

func NewService(repo Repository, users UserDirectory, products ProductDirectory, invoices *invoice.Service) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		products: products,
		invoices: invoices,
	}
}

type CreateParams struct {
	UserID int64
	// ProductIDs may repeat an id; each repetition is one more unit.
	ProductIDs     []int64
	Notes          string
	ClientName     string
	ClientDocument string
	InvoiceType    invoice.Type
}

type UpdateParams struct {
	UserID     *int64
	ProductIDs []int64
	Notes      *string
}

// Create records a sale, takes its products out of stock and issues its
// invoice. All writes share one transaction: any failure, including invoice
// issuance, leaves stock and sales untouched.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Sale, error) {
	if err := s.checkBuyer(ctx, params.UserID); err != nil {
		return nil, err
	}

	qty, ids := Quantities(params.ProductIDs)
	if len(ids) == 0 {
		return nil, ErrNoProducts
	}

	if !params.InvoiceType.Valid() {
		return nil, fmt.Errorf("%w: %q", invoice.ErrInvalidType, params.InvoiceType)
	}

	tx, err := s.repo.BeginCreate(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin sale: %w", err)
	}
	defer tx.Rollback()

	products, err := tx.LockProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}

	if len(products) != len(ids) {
		return nil, missingProductsError(ids, products)
	}

	for _, p := range products {
		if p.Stock < qty[p.ID] {
			return nil, &StockError{
				ProductID: p.ID,
				Name:      p.Name,
				Available: p.Stock,
				Requested: qty[p.ID],
			}
		}
	}

	sale := &Sale{
		UserID: params.UserID,
		Items:  itemsOf(products, qty),
		Total:  Total(products, qty),
		Notes:  params.Notes,
	}

	if err := tx.CreateSale(ctx, sale); err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}

	if err := tx.DecrementStock(ctx, qty); err != nil {
		return nil, fmt.Errorf("decrement stock: %w", err)
	}

	inv, err := s.invoices.WithRepository(tx.Invoices()).Create(ctx, invoice.CreateParams{
		SaleID:         sale.ID,
		ClientName:     params.ClientName,
		ClientDocument: params.ClientDocument,
		Type:           params.InvoiceType,
	})
	if err != nil {
		return nil, fmt.Errorf("issue invoice for sale %d: %w", sale.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sale: %w", err)
	}

	slog.Info("sale created", "sale_id", sale.ID, "total", sale.Total.StringFixed(2), "invoice", inv.Number)

	return s.Get(ctx, sale.ID)
}

// Get returns the sale with its buyer, products and invoice attached.
func (s *Service) Get(ctx context.Context, id int64) (*Sale, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("sale %d: %w", id, ErrNotFound)
		}

		return nil, err
	}

	return sale, nil
}

// List returns every sale, most recent first.
func (s *Service) List(ctx context.Context) ([]*Sale, error) {
	return s.repo.ListSales(ctx)
}

// Update replaces the buyer, the product list (recomputing the total) and the
// notes when given. Stock is neither checked nor adjusted.
func (s *Service) Update(ctx context.Context, id int64, params UpdateParams) (*Sale, error) {
	sale, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.UserID != nil {
		if err := s.checkBuyer(ctx, *params.UserID); err != nil {
			return nil, err
		}

		sale.UserID = *params.UserID
	}

	if len(params.ProductIDs) > 0 {
		qty, ids := Quantities(params.ProductIDs)

		products, err := s.products.FindByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("find products: %w", err)
		}

		if len(products) != len(ids) {
			return nil, missingProductsError(ids, products)
		}

		sale.Items = itemsOf(products, qty)
		sale.Total = Total(products, qty)
	}

	if params.Notes != nil {
		sale.Notes = *params.Notes
	}

	if err := s.repo.UpdateSale(ctx, sale); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("sale %d: %w", id, ErrNotFound)
		}

		return nil, fmt.Errorf("update sale: %w", err)
	}

	return s.Get(ctx, id)
}

// Remove deletes a sale together with its invoice. Stock is not restored.
func (s *Service) Remove(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.repo.DeleteSale(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("sale %d: %w", id, ErrNotFound)
		}

		return fmt.Errorf("delete sale: %w", err)
	}

	return nil
}

func (s *Service) checkBuyer(ctx context.Context, id int64) error {
	if _, err := s.users.Get(ctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return fmt.Errorf("user %d: %w", id, ErrNotFound)
		}

		return fmt.Errorf("get user: %w", err)
	}

	return nil
}

func missingProductsError(ids []int64, products []*product.Product) error {
	return fmt.Errorf("one or more products do not exist (ids %s): %w",
		joinIDs(missingIDs(ids, products)), ErrNotFound)
}
