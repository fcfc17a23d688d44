package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ventas/internal/database"
	"github.com/MrJamesThe3rd/ventas/internal/invoice"
	invoicestore "github.com/MrJamesThe3rd/ventas/internal/invoice/store"
	"github.com/MrJamesThe3rd/ventas/internal/product"
	productstore "github.com/MrJamesThe3rd/ventas/internal/product/store"
	"github.com/MrJamesThe3rd/ventas/internal/sale"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectSaleColumns = `
	v.id, v.usuario_id, v.importe_total, v.notas, v.created_at, v.updated_at,
	u.nombre, u.email, u.telefono,
	f.id, f.secuencia, f.numero, f.cliente_nombre, f.cliente_documento, f.tipo, f.referencia, f.created_at
`

const fromSales = `
	FROM ventas v
	JOIN usuarios u ON u.id = v.usuario_id
	LEFT JOIN facturas f ON f.venta_id = v.id
`

// scanSale reads a row selected with selectSaleColumns. Items are loaded
// separately by attachItems.
func scanSale(s scanner) (*sale.Sale, error) {
	var (
		sl           sale.Sale
		buyer        sale.Buyer
		notes        sql.NullString
		email, phone sql.NullString

		invID, invSeq        sql.NullInt64
		invNumber, invName   sql.NullString
		invDocument, invType sql.NullString
		invReference         uuid.NullUUID
		invCreatedAt         sql.NullTime
	)

	if err := s.Scan(
		&sl.ID, &sl.UserID, &sl.Total, &notes, &sl.CreatedAt, &sl.UpdatedAt,
		&buyer.Name, &email, &phone,
		&invID, &invSeq, &invNumber, &invName, &invDocument, &invType, &invReference, &invCreatedAt,
	); err != nil {
		return nil, err
	}

	sl.Notes = notes.String

	buyer.ID = sl.UserID
	buyer.Email = email.String
	buyer.Phone = phone.String
	sl.Buyer = &buyer

	if invID.Valid {
		sl.Invoice = &invoice.Invoice{
			ID:             invID.Int64,
			SaleID:         sl.ID,
			Sequence:       invSeq.Int64,
			Number:         invNumber.String,
			ClientName:     invName.String,
			ClientDocument: invDocument.String,
			Type:           invoice.Type(invType.String),
			Reference:      invReference.UUID,
			CreatedAt:      invCreatedAt.Time,
		}
	}

	return &sl, nil
}

func (s *Store) GetSale(ctx context.Context, id int64) (*sale.Sale, error) {
	query := `SELECT ` + selectSaleColumns + fromSales + `WHERE v.id = $1`

	sl, err := scanSale(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sale.ErrNotFound
		}

		return nil, fmt.Errorf("getting sale: %w", err)
	}

	if err := attachItems(ctx, s.db, []*sale.Sale{sl}); err != nil {
		return nil, err
	}

	return sl, nil
}

func (s *Store) ListSales(ctx context.Context) ([]*sale.Sale, error) {
	query := `SELECT ` + selectSaleColumns + fromSales + `ORDER BY v.id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing sales: %w", err)
	}
	defer rows.Close()

	var sales []*sale.Sale

	for rows.Next() {
		sl, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sale: %w", err)
		}

		sales = append(sales, sl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sale rows: %w", err)
	}

	if err := attachItems(ctx, s.db, sales); err != nil {
		return nil, err
	}

	return sales, nil
}

// attachItems loads the products of every sale in one query.
func attachItems(ctx context.Context, q database.Queryer, sales []*sale.Sale) error {
	if len(sales) == 0 {
		return nil
	}

	ids := make([]int64, len(sales))
	byID := make(map[int64]*sale.Sale, len(sales))

	for i, sl := range sales {
		ids[i] = sl.ID
		byID[sl.ID] = sl
	}

	query := `
		SELECT vp.venta_id, p.id, p.nombre, p.precio, vp.cantidad
		FROM ventas_productos vp
		JOIN productos p ON p.id = vp.producto_id
		WHERE vp.venta_id = ANY($1)
		ORDER BY vp.venta_id, p.id
	`

	rows, err := q.QueryContext(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("querying sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			saleID int64
			item   sale.Item
		)

		if err := rows.Scan(&saleID, &item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return fmt.Errorf("scanning sale item: %w", err)
		}

		byID[saleID].Items = append(byID[saleID].Items, item)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating sale item rows: %w", err)
	}

	return nil
}

func insertItems(ctx context.Context, q database.Queryer, saleID int64, items []sale.Item) error {
	productIDs := make([]int64, len(items))
	quantities := make([]int64, len(items))

	for i, item := range items {
		productIDs[i] = item.ProductID
		quantities[i] = int64(item.Quantity)
	}

	query := `
		INSERT INTO ventas_productos (venta_id, producto_id, cantidad)
		SELECT $1, v.producto_id, v.cantidad
		FROM unnest($2::bigint[], $3::int[]) AS v(producto_id, cantidad)
	`

	if _, err := q.ExecContext(ctx, query, saleID, productIDs, quantities); err != nil {
		return fmt.Errorf("inserting sale items: %w", err)
	}

	return nil
}

func nullableNotes(notes string) sql.NullString {
	return sql.NullString{String: notes, Valid: notes != ""}
}

// UpdateSale rewrites the sale row and replaces its item list. Stock is not
// touched.
func (s *Store) UpdateSale(ctx context.Context, sl *sale.Sale) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		UPDATE ventas
		SET usuario_id = $1, importe_total = $2, notas = $3, updated_at = NOW()
		WHERE id = $4
	`

	res, err := dbTx.ExecContext(ctx, query, sl.UserID, sl.Total, nullableNotes(sl.Notes), sl.ID)
	if err != nil {
		return fmt.Errorf("updating sale: %w", err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("updating sale: %w", err)
	} else if n == 0 {
		return sale.ErrNotFound
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM ventas_productos WHERE venta_id = $1`, sl.ID); err != nil {
		return fmt.Errorf("clearing sale items: %w", err)
	}

	if err := insertItems(ctx, dbTx, sl.ID, sl.Items); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// DeleteSale removes the sale, its items and its invoice together.
func (s *Store) DeleteSale(ctx context.Context, id int64) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := invoicestore.NewTx(dbTx).DeleteBySale(ctx, id); err != nil {
		return err
	}

	res, err := dbTx.ExecContext(ctx, `DELETE FROM ventas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting sale: %w", err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("deleting sale: %w", err)
	} else if n == 0 {
		return sale.ErrNotFound
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

type createTx struct {
	tx *sql.Tx
}

func (s *Store) BeginCreate(ctx context.Context) (sale.CreateTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning sale tx: %w", err)
	}

	return &createTx{tx: dbTx}, nil
}

func (stx *createTx) Commit() error   { return stx.tx.Commit() }
func (stx *createTx) Rollback() error { return stx.tx.Rollback() }

// LockProducts selects the products FOR UPDATE in id order, so concurrent
// sales over overlapping products queue instead of deadlocking.
func (stx *createTx) LockProducts(ctx context.Context, ids []int64) ([]*product.Product, error) {
	query := `SELECT ` + productstore.SelectColumns + `
		FROM productos p
		WHERE p.id = ANY($1)
		ORDER BY p.id
		FOR UPDATE`

	return productstore.QueryProducts(ctx, stx.tx, query, ids)
}

func (stx *createTx) CreateSale(ctx context.Context, sl *sale.Sale) error {
	query := `
		INSERT INTO ventas (usuario_id, importe_total, notas, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`

	err := stx.tx.QueryRowContext(ctx, query,
		sl.UserID,
		sl.Total,
		nullableNotes(sl.Notes),
	).Scan(&sl.ID, &sl.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating sale: %w", err)
	}

	return insertItems(ctx, stx.tx, sl.ID, sl.Items)
}

// DecrementStock subtracts every quantity in one statement. A row only
// changes while its stock still covers the quantity; a shortfall aborts with a
// *sale.StockError for the lowest product id that could not be updated.
func (stx *createTx) DecrementStock(ctx context.Context, qty map[int64]int) error {
	ids := make([]int64, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	amounts := make([]int64, len(ids))
	for i, id := range ids {
		amounts[i] = int64(qty[id])
	}

	query := `
		UPDATE productos p
		SET stock = p.stock - v.cantidad, updated_at = NOW()
		FROM unnest($1::bigint[], $2::int[]) AS v(id, cantidad)
		WHERE p.id = v.id AND p.stock >= v.cantidad
		RETURNING p.id
	`

	rows, err := stx.tx.QueryContext(ctx, query, ids, amounts)
	if err != nil {
		return fmt.Errorf("decrementing stock: %w", err)
	}
	defer rows.Close()

	updated := make(map[int64]struct{}, len(ids))

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scanning decremented product: %w", err)
		}

		updated[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("decrementing stock: %w", err)
	}

	for _, id := range ids {
		if _, ok := updated[id]; !ok {
			return stx.stockError(ctx, id, qty[id])
		}
	}

	return nil
}

func (stx *createTx) stockError(ctx context.Context, id int64, requested int) error {
	stockErr := &sale.StockError{ProductID: id, Requested: requested}

	err := stx.tx.QueryRowContext(ctx, `SELECT nombre, stock FROM productos WHERE id = $1`, id).
		Scan(&stockErr.Name, &stockErr.Available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("product %d: %w", id, sale.ErrNotFound)
		}

		return fmt.Errorf("reading stock of product %d: %w", id, err)
	}

	return stockErr
}

func (stx *createTx) Invoices() invoice.Repository {
	return invoicestore.NewTx(stx.tx)
}
