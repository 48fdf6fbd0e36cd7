package contracts

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/locafrota/locafrota/internal/shared"
	"github.com/locafrota/locafrota/internal/vehicles"
)

// Repository persists contracts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations a lifecycle transition runs inside one
// transaction. Vehicle allocation writes live here so contract and vehicle
// rows always commit together.
type TxRepository interface {
	GetContractForUpdate(ctx context.Context, id int64) (Contract, error)
	GetVehicleForUpdate(ctx context.Context, id int64) (vehicles.Vehicle, error)
	SetVehicleStatus(ctx context.Context, id int64, status vehicles.Status) error
	CountActiveByVehicle(ctx context.Context, vehicleID, excludeContractID int64) (int, error)
	InsertContract(ctx context.Context, c Contract) (Contract, error)
	UpdateContract(ctx context.Context, c Contract) error
	DeleteContract(ctx context.Context, id int64) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const contractColumns = `id, contract_number, driver_id, vehicle_id, plan_id, branch_id,
start_date, end_date, billing_day, monthly_amount, deposit,
odometer_start, odometer_current, status, notes,
signed_at, canceled_at, cancel_reason, created_at, updated_at`

func scanContract(row pgx.Row) (Contract, error) {
	var c Contract
	err := row.Scan(&c.ID, &c.ContractNumber, &c.DriverID, &c.VehicleID, &c.PlanID, &c.BranchID,
		&c.StartDate, &c.EndDate, &c.BillingDay, &c.MonthlyAmount, &c.Deposit,
		&c.OdometerStart, &c.OdometerCurrent, &c.Status, &c.Notes,
		&c.SignedAt, &c.CanceledAt, &c.CancelReason, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Get loads one contract outside any transaction.
func (r *Repository) Get(ctx context.Context, id int64) (Contract, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contract{}, fmt.Errorf("contract %d: %w", id, shared.ErrNotFound)
		}
		return Contract{}, err
	}
	return c, nil
}

// List returns contracts matching the filters plus the unfiltered-page total.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Contract, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argPos := 1
	if filters.Status != "" {
		where += ` AND status = $` + strconv.Itoa(argPos)
		args = append(args, filters.Status)
		argPos++
	}
	if filters.DriverID != 0 {
		where += ` AND driver_id = $` + strconv.Itoa(argPos)
		args = append(args, filters.DriverID)
		argPos++
	}
	if filters.VehicleID != 0 {
		where += ` AND vehicle_id = $` + strconv.Itoa(argPos)
		args = append(args, filters.VehicleID)
		argPos++
	}
	if filters.BranchID != 0 {
		where += ` AND branch_id = $` + strconv.Itoa(argPos)
		args = append(args, filters.BranchID)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contracts`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + contractColumns + ` FROM contracts` + where +
		` ORDER BY id DESC LIMIT $` + strconv.Itoa(argPos) + ` OFFSET $` + strconv.Itoa(argPos+1)
	args = append(args, limit, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// ListActive returns every contract currently in the active state. Used by
// the billing generator.
func (r *Repository) ListActive(ctx context.Context) ([]Contract, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+contractColumns+` FROM contracts WHERE status = $1 ORDER BY id`, StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *txRepo) GetContractForUpdate(ctx context.Context, id int64) (Contract, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1 FOR UPDATE`, id)
	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contract{}, fmt.Errorf("contract %d: %w", id, shared.ErrNotFound)
		}
		return Contract{}, err
	}
	return c, nil
}

func (t *txRepo) GetVehicleForUpdate(ctx context.Context, id int64) (vehicles.Vehicle, error) {
	row := t.tx.QueryRow(ctx, `SELECT id, plate, category, status, current_odometer, created_at, updated_at
FROM vehicles WHERE id = $1 FOR UPDATE`, id)
	var v vehicles.Vehicle
	err := row.Scan(&v.ID, &v.Plate, &v.Category, &v.Status, &v.CurrentOdometer, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return vehicles.Vehicle{}, fmt.Errorf("vehicle %d: %w", id, shared.ErrNotFound)
		}
		return vehicles.Vehicle{}, err
	}
	return v, nil
}

func (t *txRepo) SetVehicleStatus(ctx context.Context, id int64, status vehicles.Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE vehicles SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vehicle %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (t *txRepo) CountActiveByVehicle(ctx context.Context, vehicleID, excludeContractID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM contracts WHERE vehicle_id = $1 AND status = $2 AND id <> $3`,
		vehicleID, StatusActive, excludeContractID).Scan(&n)
	return n, err
}

func (t *txRepo) InsertContract(ctx context.Context, c Contract) (Contract, error) {
	row := t.tx.QueryRow(ctx, `INSERT INTO contracts
(contract_number, driver_id, vehicle_id, plan_id, branch_id,
 start_date, end_date, billing_day, monthly_amount, deposit,
 odometer_start, odometer_current, status, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NOW(),NOW())
RETURNING `+contractColumns,
		c.ContractNumber, c.DriverID, c.VehicleID, c.PlanID, c.BranchID,
		c.StartDate, c.EndDate, c.BillingDay, c.MonthlyAmount, c.Deposit,
		c.OdometerStart, c.OdometerCurrent, c.Status, c.Notes)
	created, err := scanContract(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Contract{}, fmt.Errorf("contract number %q already exists: %w", c.ContractNumber, shared.ErrConflict)
		}
		return Contract{}, err
	}
	return created, nil
}

func (t *txRepo) UpdateContract(ctx context.Context, c Contract) error {
	tag, err := t.tx.Exec(ctx, `UPDATE contracts SET
contract_number = $1, driver_id = $2, vehicle_id = $3, plan_id = $4, branch_id = $5,
start_date = $6, end_date = $7, billing_day = $8, monthly_amount = $9, deposit = $10,
odometer_start = $11, odometer_current = $12, status = $13, notes = $14,
signed_at = $15, canceled_at = $16, cancel_reason = $17, updated_at = NOW()
WHERE id = $18`,
		c.ContractNumber, c.DriverID, c.VehicleID, c.PlanID, c.BranchID,
		c.StartDate, c.EndDate, c.BillingDay, c.MonthlyAmount, c.Deposit,
		c.OdometerStart, c.OdometerCurrent, c.Status, c.Notes,
		c.SignedAt, c.CanceledAt, c.CancelReason, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("contract number %q already exists: %w", c.ContractNumber, shared.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("contract %d: %w", c.ID, shared.ErrNotFound)
	}
	return nil
}

func (t *txRepo) DeleteContract(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("contract %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
