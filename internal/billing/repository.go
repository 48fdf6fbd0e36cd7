package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/locafrota/locafrota/internal/shared"
)

// Repository persists invoices in PostgreSQL. The unique index on
// (contract_id, reference_month) is the hard guarantee against duplicate
// invoices; Insert surfaces it as a conflict.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `id, contract_id, reference_month, due_date, amount, status,
payment_date, payment_method, days_late, late_fee, observations, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.ContractID, &inv.ReferenceMonth, &inv.DueDate, &inv.Amount, &inv.Status,
		&inv.PaymentDate, &inv.PaymentMethod, &inv.DaysLate, &inv.LateFee, &inv.Observations,
		&inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

// Get loads one invoice.
func (r *Repository) Get(ctx context.Context, id int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, fmt.Errorf("invoice %d: %w", id, shared.ErrNotFound)
		}
		return Invoice{}, err
	}
	return inv, nil
}

// List returns invoices matching the filters plus the total count.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Invoice, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argPos := 1
	if filters.Status != "" {
		where += ` AND status = $` + strconv.Itoa(argPos)
		args = append(args, filters.Status)
		argPos++
	}
	if filters.ContractID != 0 {
		where += ` AND contract_id = $` + strconv.Itoa(argPos)
		args = append(args, filters.ContractID)
		argPos++
	}
	if filters.ReferenceMonth != "" {
		where += ` AND reference_month = $` + strconv.Itoa(argPos)
		args = append(args, filters.ReferenceMonth)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices` + where +
		` ORDER BY due_date DESC, id DESC LIMIT $` + strconv.Itoa(argPos) + ` OFFSET $` + strconv.Itoa(argPos+1)
	args = append(args, limit, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

// Insert creates a pending invoice. A duplicate (contract, reference month)
// pair maps to a conflict so generator runs stay idempotent per row.
func (r *Repository) Insert(ctx context.Context, inv Invoice) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO invoices
(contract_id, reference_month, due_date, amount, status, days_late, late_fee, observations, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,0,0,$6,NOW(),NOW()) RETURNING `+invoiceColumns,
		inv.ContractID, inv.ReferenceMonth, inv.DueDate, inv.Amount, inv.Status, inv.Observations)
	created, err := scanInvoice(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Invoice{}, fmt.Errorf("invoice for contract %d in %s already exists: %w",
				inv.ContractID, inv.ReferenceMonth, shared.ErrConflict)
		}
		return Invoice{}, err
	}
	return created, nil
}

// RecordPayment marks the invoice paid with the payment details. The update
// only lands while the row is still pending or overdue, so a payment that
// races with a cancel (or another payment) fails instead of overwriting a
// terminal status.
func (r *Repository) RecordPayment(ctx context.Context, inv Invoice) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET
status = $1, payment_date = $2, payment_method = $3, days_late = $4, late_fee = $5, observations = $6, updated_at = NOW()
WHERE id = $7 AND status IN ($8, $9)`,
		inv.Status, inv.PaymentDate, inv.PaymentMethod, inv.DaysLate, inv.LateFee, inv.Observations, inv.ID,
		StatusPending, StatusOverdue)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %d is no longer payable: %w", inv.ID, shared.ErrInvalidState)
	}
	return nil
}

// Cancel voids an invoice. Paid and canceled rows are terminal; the predicate
// leaves them untouched and the zero row count surfaces as an invalid state.
func (r *Repository) Cancel(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET status = $1, updated_at = NOW()
WHERE id = $2 AND status IN ($3, $4)`, StatusCanceled, id, StatusPending, StatusOverdue)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %d cannot be canceled: %w", id, shared.ErrInvalidState)
	}
	return nil
}

// MarkOverdue flips every pending invoice due strictly before the cutoff to
// overdue and returns the affected count. Re-running is a no-op once all
// qualifying rows are updated.
func (r *Repository) MarkOverdue(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET status = $1, updated_at = NOW()
WHERE status = $2 AND due_date < $3`, StatusOverdue, StatusPending, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
