package product

import (
	"context"
	"fmt"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=product
type Repository interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	FindByIDs(ctx context.Context, ids []int64) ([]*Product, error)
	UpsertProducts(ctx context.Context, params []UpsertParams) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Product, error) {
	return s.repo.ListProducts(ctx)
}

// FindByIDs returns the products that exist among ids. Missing ids are
// silently absent from the result; callers compare lengths.
func (s *Service) FindByIDs(ctx context.Context, ids []int64) ([]*Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	return s.repo.FindByIDs(ctx, ids)
}

// Upsert writes a batch of catalogue rows atomically. Rows are validated up
// front so a bad row rejects the whole batch.
func (s *Service) Upsert(ctx context.Context, params []UpsertParams) error {
	if len(params) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(params))

	for _, p := range params {
		if err := validate(p); err != nil {
			return err
		}

		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: id %d appears more than once", ErrInvalid, p.ID)
		}

		seen[p.ID] = struct{}{}
	}

	return s.repo.UpsertProducts(ctx, params)
}

func validate(p UpsertParams) error {
	switch {
	case p.ID <= 0:
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalid, p.ID)
	case p.Name == "":
		return fmt.Errorf("%w: product %d has no name", ErrInvalid, p.ID)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: product %d has negative price %s", ErrInvalid, p.ID, p.Price)
	case p.Stock < 0:
		return fmt.Errorf("%w: product %d has negative stock %d", ErrInvalid, p.ID, p.Stock)
	}

	return nil
}
