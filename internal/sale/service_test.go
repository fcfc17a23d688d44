package sale_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/ventas/internal/invoice"
	"github.com/MrJamesThe3rd/ventas/internal/product"
	"github.com/MrJamesThe3rd/ventas/internal/sale"
	"github.com/MrJamesThe3rd/ventas/internal/user"
)

type fixture struct {
	repo     *sale.MockRepository
	tx       *sale.MockCreateTx
	users    *sale.MockUserDirectory
	products *sale.MockProductDirectory
	invoices *invoice.MockRepository
	svc      *sale.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := &fixture{
		repo:     sale.NewMockRepository(ctrl),
		tx:       sale.NewMockCreateTx(ctrl),
		users:    sale.NewMockUserDirectory(ctrl),
		products: sale.NewMockProductDirectory(ctrl),
		invoices: invoice.NewMockRepository(ctrl),
	}

	invoiceSvc := invoice.NewService(invoice.NewMockRepository(ctrl), "FAC")
	f.svc = sale.NewService(f.repo, f.users, f.products, invoiceSvc)

	return f
}

func catalogue() (*product.Product, *product.Product) {
	notebook := &product.Product{ID: 2, Name: "Notebook", Price: decimal.NewFromInt(1150000), Stock: 10, Active: true}
	monitor := &product.Product{ID: 3, Name: "Monitor", Price: decimal.NewFromInt(125000), Stock: 5, Active: true}

	return notebook, monitor
}

func createParams(ids ...int64) sale.CreateParams {
	return sale.CreateParams{
		UserID:         1,
		ProductIDs:     ids,
		Notes:          "entrega en local",
		ClientName:     "Juan Pérez",
		ClientDocument: "20-12345678-9",
		InvoiceType:    invoice.TypeB,
	}
}

func TestQuantities(t *testing.T) {
	qty, ids := sale.Quantities([]int64{2, 2, 3})

	assert.Equal(t, map[int64]int{2: 2, 3: 1}, qty)
	assert.Equal(t, []int64{2, 3}, ids)

	qty, ids = sale.Quantities(nil)
	assert.Empty(t, qty)
	assert.Empty(t, ids)
}

func TestTotal(t *testing.T) {
	notebook, monitor := catalogue()

	got := sale.Total([]*product.Product{notebook, monitor}, map[int64]int{2: 2, 3: 1})
	assert.Equal(t, "2425000.00", got.StringFixed(2))

	cable := &product.Product{ID: 9, Price: decimal.RequireFromString("0.125")}
	got = sale.Total([]*product.Product{cable}, map[int64]int{9: 1})
	assert.Equal(t, "0.13", got.StringFixed(2))
}

func TestService_Create_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	notebook, monitor := catalogue()

	var created *sale.Sale

	var issued *invoice.Invoice

	enriched := &sale.Sale{ID: 15, UserID: 1, Total: decimal.NewFromInt(2425000)}

	f.users.EXPECT().Get(gomock.Any(), int64(1)).Return(&user.User{ID: 1, Name: "Ana"}, nil)
	f.repo.EXPECT().BeginCreate(gomock.Any()).Return(f.tx, nil)

	gomock.InOrder(
		f.tx.EXPECT().LockProducts(gomock.Any(), []int64{2, 3}).Return([]*product.Product{notebook, monitor}, nil),
		f.tx.EXPECT().CreateSale(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, s *sale.Sale) error {
				s.ID = 15
				s.CreatedAt = time.Now()
				created = s

				return nil
			}),
		f.tx.EXPECT().DecrementStock(gomock.Any(), map[int64]int{2: 2, 3: 1}).Return(nil),
		f.tx.EXPECT().Invoices().Return(f.invoices),
		f.tx.EXPECT().Commit().Return(nil),
		f.repo.EXPECT().GetSale(gomock.Any(), int64(15)).Return(enriched, nil),
	)
	f.tx.EXPECT().Rollback().Return(nil)

	f.invoices.EXPECT().NextSequence(gomock.Any()).Return(int64(1), nil)
	f.invoices.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
			issued = inv
			return nil
		})

	got, err := f.svc.Create(ctx, createParams(2, 2, 3))
	require.NoError(t, err)
	assert.Same(t, enriched, got)

	require.NotNil(t, created)
	assert.Equal(t, int64(1), created.UserID)
	assert.Equal(t, "2425000.00", created.Total.StringFixed(2))
	assert.Equal(t, "entrega en local", created.Notes)
	assert.Equal(t, []sale.Item{
		{ProductID: 2, Name: "Notebook", Price: notebook.Price, Quantity: 2},
		{ProductID: 3, Name: "Monitor", Price: monitor.Price, Quantity: 1},
	}, created.Items)

	// Stock lives in the database; the locked rows handed to the service stay as read.
	assert.Equal(t, 10, notebook.Stock)
	assert.Equal(t, 5, monitor.Stock)

	require.NotNil(t, issued)
	assert.Equal(t, int64(15), issued.SaleID)
	assert.Equal(t, "FAC-000001", issued.Number)
	assert.Equal(t, "Juan Pérez", issued.ClientName)
	assert.Equal(t, "20-12345678-9", issued.ClientDocument)
	assert.Equal(t, invoice.TypeB, issued.Type)
}

func TestService_Create_Failures(t *testing.T) {
	type testCase struct {
		name      string
		params    sale.CreateParams
		setupMock func(f *fixture, notebook, monitor *product.Product)
		wantErr   error
		wantMsg   string
	}

	tests := []testCase{
		{
			name:   "MissingBuyer",
			params: sale.CreateParams{UserID: 99, ProductIDs: []int64{2}},
			setupMock: func(f *fixture, _, _ *product.Product) {
				f.users.EXPECT().Get(gomock.Any(), int64(99)).Return(nil, user.ErrNotFound)
			},
			wantErr: sale.ErrNotFound,
			wantMsg: "user 99: not found",
		},
		{
			name:   "BuyerLookupError",
			params: createParams(2),
			setupMock: func(f *fixture, _, _ *product.Product) {
				f.users.EXPECT().Get(gomock.Any(), int64(1)).Return(nil, errors.New("connection reset"))
			},
		},
		{
			name:   "NoProducts",
			params: createParams(),
			setupMock: func(f *fixture, _, _ *product.Product) {
				f.users.EXPECT().Get(gomock.Any(), int64(1)).Return(&user.User{ID: 1}, nil)
			},
			wantErr: sale.ErrNoProducts,
		},
		{
			name:   "MissingProduct",
			params: createParams(2, 7, 3),
			setupMock: func(f *fixture, notebook, monitor *product.Product) {
				f.users.EXPECT().Get(gomock.Any(), int64(1)).Return(&user.User{ID: 1}, nil)
				f.repo.EXPECT().BeginCreate(gomock.Any()).Return(f.tx, nil)
				f.tx.EXPECT().LockProducts(gomock.Any(), []int64{2, 7, 3}).
					Return([]*product.Product{notebook, monitor}, nil)
				f.tx.EXPECT().Rollback().Return(nil)
			},
			wantErr: sale.ErrNotFound,
			wantMsg: "one or more products do not exist (ids 7): not found",
		},
		{
			name:   "InsufficientStock",
			params: createParams(2, 3, 3, 3, 3, 3, 3),
			setupMock: func(f *fixture, notebook, monitor *product.Product) {
				f.users.EXPECT().Get(gomock.Any(), int64(1)).Return(&user.User{ID: 1}, nil)
				f.repo.EXPECT().BeginCreate(gomock.Any()).Return(f.tx, nil)
				f.tx.EXPECT().LockProducts(gomock.Any(), []int64{2, 3}).
					Return([]*product.Product{notebook, monitor}, nil)
				f.tx.EXPECT().Rollback().Return(nil)
			},
			wantErr: sale.ErrInsufficientStock,
			wantMsg: `insufficient stock for product "Monitor" (id 3): available 5, requested 6`,
		},
		{
			name:   "OutOfStock",
			params: createParams(2),
			setupMock: func(f *fixture, notebook, _ *product.Product) {
				notebook.Stock = 0

				f.users.EXPECT().Get(gomock.Any(), int64(1)).Return(&user.User{ID: 1}, nil)
				f.repo.EXPECT().BeginCreate(gomock.Any()).Return(f.tx, nil)
				f.tx.EXPECT().LockProducts(gomock.Any(), []int64{2}).
					Return([]*product.Product{notebook}, nil)
				f.tx.EXPECT().Rollback().Return(nil)
			},
			wantErr: sale.ErrInsufficientStock,
		},
		{
			name:   "StockRaceCaughtByConditionalUpdate",
			params: createParams(2),
			setupMock: func(f *fixture, notebook, _ *product.Product) {
				f.users.EXPECT().Get(gomock.Any(), int64(1)).Return(&user.User{ID: 1}, nil)
				f.repo.EXPECT().BeginCreate(gomock.Any()).Return(f.tx, nil)
				f.tx.EXPECT().LockProducts(gomock.Any(), []int64{2}).
					Return([]*product.Product{notebook}, nil)
				f.tx.EXPECT().CreateSale(gomock.Any(), gomock.Any()).Return(nil)
				f.tx.EXPECT().DecrementStock(gomock.Any(), map[int64]int{2: 1}).Return(sale.ErrInsufficientStock)
				f.tx.EXPECT().Rollback().Return(nil)
			},
			wantErr: sale.ErrInsufficientStock,
		},
		{
			name:   "InvoiceFailureRollsBack",
			params: createParams(2),
			setupMock: func(f *fixture, notebook, _ *product.Product) {
				f.users.EXPECT().Get(gomock.Any(), int64(1)).Return(&user.User{ID: 1}, nil)
				f.repo.EXPECT().BeginCreate(gomock.Any()).Return(f.tx, nil)
				f.tx.EXPECT().LockProducts(gomock.Any(), []int64{2}).
					Return([]*product.Product{notebook}, nil)
				f.tx.EXPECT().CreateSale(gomock.Any(), gomock.Any()).Return(nil)
				f.tx.EXPECT().DecrementStock(gomock.Any(), gomock.Any()).Return(nil)
				f.tx.EXPECT().Invoices().Return(f.invoices)
				f.invoices.EXPECT().NextSequence(gomock.Any()).Return(int64(0), errors.New("lock timeout"))
				f.tx.EXPECT().Rollback().Return(nil)
			},
		},
		{
			name: "InvalidInvoiceType",
			params: sale.CreateParams{
				UserID: 1, ProductIDs: []int64{2}, InvoiceType: "Z",
			},
			setupMock: func(f *fixture, _, _ *product.Product) {
				f.users.EXPECT().Get(gomock.Any(), int64(1)).Return(&user.User{ID: 1}, nil)
			},
			wantErr: invoice.ErrInvalidType,
			wantMsg: `invalid invoice type: "Z"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			notebook, monitor := catalogue()

			tt.setupMock(f, notebook, monitor)

			initialStock := []int{notebook.Stock, monitor.Stock}

			got, err := f.svc.Create(context.Background(), tt.params)
			require.Error(t, err)
			assert.Nil(t, got)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			if tt.wantMsg != "" {
				assert.EqualError(t, err, tt.wantMsg)
			}

			assert.Equal(t, initialStock, []int{notebook.Stock, monitor.Stock})
		})
	}
}

func TestService_Create_StockErrorDetails(t *testing.T) {
	f := newFixture(t)
	notebook, _ := catalogue()
	notebook.Stock = 1

	f.users.EXPECT().Get(gomock.Any(), int64(1)).Return(&user.User{ID: 1}, nil)
	f.repo.EXPECT().BeginCreate(gomock.Any()).Return(f.tx, nil)
	f.tx.EXPECT().LockProducts(gomock.Any(), []int64{2}).Return([]*product.Product{notebook}, nil)
	f.tx.EXPECT().Rollback().Return(nil)

	_, err := f.svc.Create(context.Background(), createParams(2, 2, 2))

	var stockErr *sale.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(2), stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 1, notebook.Stock)
}

func TestService_Get(t *testing.T) {
	type testCase struct {
		name      string
		id        int64
		setupMock func(m *sale.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Success",
			id:   4,
			setupMock: func(m *sale.MockRepository) {
				m.EXPECT().GetSale(gomock.Any(), int64(4)).Return(&sale.Sale{ID: 4}, nil)
			},
		},
		{
			name: "NotFound",
			id:   404,
			setupMock: func(m *sale.MockRepository) {
				m.EXPECT().GetSale(gomock.Any(), int64(404)).Return(nil, sale.ErrNotFound)
			},
			wantErr: sale.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMock(f.repo)

			got, err := f.svc.Get(context.Background(), tt.id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), "sale 404")

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.id, got.ID)
		})
	}
}

func TestService_Get_Idempotent(t *testing.T) {
	f := newFixture(t)

	stored := &sale.Sale{
		ID:     15,
		UserID: 1,
		Buyer:  &sale.Buyer{ID: 1, Name: "Ana"},
		Items: []sale.Item{
			{ProductID: 2, Name: "Notebook", Price: decimal.NewFromInt(1150000), Quantity: 2},
			{ProductID: 3, Name: "Monitor", Price: decimal.NewFromInt(125000), Quantity: 1},
		},
		Total: decimal.NewFromInt(2425000),
	}

	f.repo.EXPECT().GetSale(gomock.Any(), int64(15)).Return(stored, nil).Times(3)

	for i := 0; i < 3; i++ {
		got, err := f.svc.Get(context.Background(), 15)
		require.NoError(t, err)
		assert.Equal(t, "2425000.00", got.Total.StringFixed(2))
		assert.Equal(t, int64(1), got.Buyer.ID)
		assert.Len(t, got.Items, 2)
	}
}

func TestService_List(t *testing.T) {
	f := newFixture(t)

	f.repo.EXPECT().ListSales(gomock.Any()).Return([]*sale.Sale{{ID: 3}, {ID: 2}, {ID: 1}}, nil)

	got, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].ID)
}

func TestService_Update(t *testing.T) {
	notes := "cambio de equipo"
	cleared := ""
	newBuyer := int64(8)

	type testCase struct {
		name      string
		params    sale.UpdateParams
		setupMock func(f *fixture)
		verify    func(t *testing.T, updated *sale.Sale)
		wantErr   error
	}

	tests := []testCase{
		{
			name:   "ReplaceProductsRecomputesTotalWithoutTouchingStock",
			params: sale.UpdateParams{ProductIDs: []int64{2, 3, 3}},
			setupMock: func(f *fixture) {
				notebook, monitor := catalogue()

				f.repo.EXPECT().GetSale(gomock.Any(), int64(5)).
					Return(&sale.Sale{ID: 5, UserID: 1, Total: decimal.NewFromInt(1150000), Notes: "x"}, nil)
				f.products.EXPECT().FindByIDs(gomock.Any(), []int64{2, 3}).
					Return([]*product.Product{notebook, monitor}, nil)
				f.repo.EXPECT().GetSale(gomock.Any(), int64(5)).Return(&sale.Sale{ID: 5}, nil)
			},
			verify: func(t *testing.T, updated *sale.Sale) {
				assert.Equal(t, "1400000.00", updated.Total.StringFixed(2))
				assert.Equal(t, "x", updated.Notes)
				require.Len(t, updated.Items, 2)
				assert.Equal(t, 2, updated.Items[1].Quantity)
			},
		},
		{
			name:   "ReplaceBuyerAndNotes",
			params: sale.UpdateParams{UserID: &newBuyer, Notes: &notes},
			setupMock: func(f *fixture) {
				f.repo.EXPECT().GetSale(gomock.Any(), int64(5)).
					Return(&sale.Sale{ID: 5, UserID: 1, Total: decimal.NewFromInt(10)}, nil)
				f.users.EXPECT().Get(gomock.Any(), int64(8)).Return(&user.User{ID: 8}, nil)
				f.repo.EXPECT().GetSale(gomock.Any(), int64(5)).Return(&sale.Sale{ID: 5}, nil)
			},
			verify: func(t *testing.T, updated *sale.Sale) {
				assert.Equal(t, int64(8), updated.UserID)
				assert.Equal(t, "cambio de equipo", updated.Notes)
				assert.Equal(t, "10.00", updated.Total.StringFixed(2))
			},
		},
		{
			name:   "EmptyNotesClear",
			params: sale.UpdateParams{Notes: &cleared},
			setupMock: func(f *fixture) {
				f.repo.EXPECT().GetSale(gomock.Any(), int64(5)).Return(&sale.Sale{ID: 5, Notes: "old"}, nil)
				f.repo.EXPECT().GetSale(gomock.Any(), int64(5)).Return(&sale.Sale{ID: 5}, nil)
			},
			verify: func(t *testing.T, updated *sale.Sale) {
				assert.Empty(t, updated.Notes)
			},
		},
		{
			name:   "SaleNotFound",
			params: sale.UpdateParams{Notes: &notes},
			setupMock: func(f *fixture) {
				f.repo.EXPECT().GetSale(gomock.Any(), int64(5)).Return(nil, sale.ErrNotFound)
			},
			wantErr: sale.ErrNotFound,
		},
		{
			name:   "BuyerNotFound",
			params: sale.UpdateParams{UserID: &newBuyer},
			setupMock: func(f *fixture) {
				f.repo.EXPECT().GetSale(gomock.Any(), int64(5)).Return(&sale.Sale{ID: 5}, nil)
				f.users.EXPECT().Get(gomock.Any(), int64(8)).Return(nil, user.ErrNotFound)
			},
			wantErr: sale.ErrNotFound,
		},
		{
			name:   "ProductNotFound",
			params: sale.UpdateParams{ProductIDs: []int64{2, 40}},
			setupMock: func(f *fixture) {
				notebook, _ := catalogue()

				f.repo.EXPECT().GetSale(gomock.Any(), int64(5)).Return(&sale.Sale{ID: 5}, nil)
				f.products.EXPECT().FindByIDs(gomock.Any(), []int64{2, 40}).
					Return([]*product.Product{notebook}, nil)
			},
			wantErr: sale.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMock(f)

			var saved *sale.Sale

			if tt.verify != nil {
				f.repo.EXPECT().UpdateSale(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, s *sale.Sale) error {
						saved = s
						return nil
					})
			}

			got, err := f.svc.Update(context.Background(), 5, tt.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, saved)
			tt.verify(t, saved)
		})
	}
}

func TestService_Remove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gomock.InOrder(
		f.repo.EXPECT().GetSale(gomock.Any(), int64(6)).Return(&sale.Sale{ID: 6}, nil),
		f.repo.EXPECT().DeleteSale(gomock.Any(), int64(6)).Return(nil),
		f.repo.EXPECT().GetSale(gomock.Any(), int64(6)).Return(nil, sale.ErrNotFound),
	)

	require.NoError(t, f.svc.Remove(ctx, 6))

	_, err := f.svc.Get(ctx, 6)
	assert.ErrorIs(t, err, sale.ErrNotFound)
}

func TestService_Remove_NotFound(t *testing.T) {
	f := newFixture(t)

	f.repo.EXPECT().GetSale(gomock.Any(), int64(6)).Return(nil, sale.ErrNotFound)

	err := f.svc.Remove(context.Background(), 6)
	assert.ErrorIs(t, err, sale.ErrNotFound)
	assert.EqualError(t, err, "sale 6: not found")
}
