package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/ventas/internal/database"
	"github.com/MrJamesThe3rd/ventas/internal/product"
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

// SelectColumns is the column list ScanProduct expects, aliased on p.
const SelectColumns = `p.id, p.nombre, p.precio, p.stock, p.estado, p.created_at, p.updated_at`

// ScanProduct reads one row selected with SelectColumns.
func ScanProduct(s scanner) (*product.Product, error) {
	var p product.Product

	if err := s.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	return &p, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*product.Product, error) {
	query := `SELECT ` + SelectColumns + ` FROM productos p WHERE p.id = $1`

	p, err := ScanProduct(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, product.ErrNotFound
		}

		return nil, fmt.Errorf("getting product: %w", err)
	}

	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]*product.Product, error) {
	query := `SELECT ` + SelectColumns + ` FROM productos p ORDER BY p.estado DESC, p.id ASC`

	return queryProducts(ctx, s.db, query)
}

func (s *Store) FindByIDs(ctx context.Context, ids []int64) ([]*product.Product, error) {
	query := `SELECT ` + SelectColumns + ` FROM productos p WHERE p.id = ANY($1) ORDER BY p.id ASC`

	return queryProducts(ctx, s.db, query, ids)
}

// QueryProducts runs a product query on q, which may be a transaction.
func QueryProducts(ctx context.Context, q database.Queryer, query string, args ...any) ([]*product.Product, error) {
	return queryProducts(ctx, q, query, args...)
}

func queryProducts(ctx context.Context, q database.Queryer, query string, args ...any) ([]*product.Product, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []*product.Product

	for rows.Next() {
		p, err := ScanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}

		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}

	return products, nil
}

// UpsertProducts inserts or replaces catalogue rows by id in a single
// transaction.
func (s *Store) UpsertProducts(ctx context.Context, params []product.UpsertParams) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO productos (id, nombre, precio, stock, estado, created_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW())
		ON CONFLICT (id) DO UPDATE
		SET nombre = EXCLUDED.nombre, precio = EXCLUDED.precio, stock = EXCLUDED.stock, updated_at = NOW()
	`

	for _, p := range params {
		if _, err := dbTx.ExecContext(ctx, query, p.ID, p.Name, p.Price, p.Stock); err != nil {
			return fmt.Errorf("upserting product %d: %w", p.ID, err)
		}
	}

	// Explicit ids bypass the identity sequence; move it past the highest id.
	if _, err := dbTx.ExecContext(ctx,
		`SELECT setval(pg_get_serial_sequence('productos', 'id'), (SELECT MAX(id) FROM productos))`,
	); err != nil {
		return fmt.Errorf("advancing product id sequence: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
