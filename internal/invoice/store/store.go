package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/MrJamesThe3rd/ventas/internal/database"
	"github.com/MrJamesThe3rd/ventas/internal/invoice"
)

type Store struct {
	q database.Queryer
}

func New(db *sql.DB) *Store {
	return &Store{q: db}
}

// NewTx returns a store whose statements run inside tx.
func NewTx(tx *sql.Tx) *Store {
	return &Store{q: tx}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectInvoiceColumns = `
	f.id, f.venta_id, f.secuencia, f.numero, f.cliente_nombre, f.cliente_documento,
	f.tipo, f.referencia, f.created_at
`

func scanInvoice(s scanner) (*invoice.Invoice, error) {
	var (
		inv     invoice.Invoice
		typeStr string
	)

	if err := s.Scan(
		&inv.ID, &inv.SaleID, &inv.Sequence, &inv.Number, &inv.ClientName, &inv.ClientDocument,
		&typeStr, &inv.Reference, &inv.CreatedAt,
	); err != nil {
		return nil, err
	}

	inv.Type = invoice.Type(typeStr)

	return &inv, nil
}

func numberingLockKey() int64 {
	h := fnv.New64a()
	h.Write([]byte("facturas.secuencia"))

	return int64(h.Sum64())
}

// NextSequence takes a transaction-scoped advisory lock before reading the
// current maximum, so two issuers never receive the same number. The lock is
// released when the surrounding transaction ends.
func (s *Store) NextSequence(ctx context.Context) (int64, error) {
	if _, err := s.q.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", numberingLockKey()); err != nil {
		return 0, fmt.Errorf("acquiring numbering lock: %w", err)
	}

	var seq int64
	if err := s.q.QueryRowContext(ctx, `SELECT COALESCE(MAX(secuencia), 0) + 1 FROM facturas`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("reading invoice sequence: %w", err)
	}

	return seq, nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		INSERT INTO facturas (venta_id, secuencia, numero, cliente_nombre, cliente_documento, tipo, referencia, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`

	err := s.q.QueryRowContext(ctx, query,
		inv.SaleID,
		inv.Sequence,
		inv.Number,
		inv.ClientName,
		inv.ClientDocument,
		inv.Type,
		inv.Reference,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating invoice: %w", err)
	}

	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id int64) (*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + ` FROM facturas f WHERE f.id = $1`

	return s.getOne(ctx, query, id)
}

func (s *Store) GetBySale(ctx context.Context, saleID int64) (*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + ` FROM facturas f WHERE f.venta_id = $1`

	return s.getOne(ctx, query, saleID)
}

func (s *Store) getOne(ctx context.Context, query string, arg any) (*invoice.Invoice, error) {
	inv, err := scanInvoice(s.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	return inv, nil
}

func (s *Store) ListInvoices(ctx context.Context) ([]*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + ` FROM facturas f ORDER BY f.secuencia DESC`

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoice rows: %w", err)
	}

	return invoices, nil
}

// DeleteBySale removes the invoice attached to a sale, if any.
func (s *Store) DeleteBySale(ctx context.Context, saleID int64) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM facturas WHERE venta_id = $1`, saleID); err != nil {
		return fmt.Errorf("deleting invoice of sale %d: %w", saleID, err)
	}

	return nil
}
