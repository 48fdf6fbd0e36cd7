package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/locafrota/locafrota/internal/shared"
	"github.com/locafrota/locafrota/internal/vehicles"
)

// Repository persists maintenance orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository groups the writes of one order transition. Vehicle state
// changes commit together with the order row.
type TxRepository interface {
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	GetVehicleForUpdate(ctx context.Context, id int64) (vehicles.Vehicle, error)
	SetVehicleStatus(ctx context.Context, id int64, status vehicles.Status) error
	InsertOrder(ctx context.Context, o Order) (Order, error)
	UpdateOrder(ctx context.Context, o Order) error
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

const orderColumns = `id, vehicle_id, order_type, description, status, opened_at, closed_at, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.VehicleID, &o.Type, &o.Description, &o.Status, &o.OpenedAt, &o.ClosedAt, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// Get loads one order outside any transaction.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM maintenance_orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, fmt.Errorf("maintenance order %d: %w", id, shared.ErrNotFound)
		}
		return Order{}, err
	}
	return o, nil
}

// List returns orders, optionally filtered by vehicle and status.
func (r *Repository) List(ctx context.Context, vehicleID int64, status OrderStatus, limit, offset int) ([]Order, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argPos := 1
	if vehicleID != 0 {
		where += ` AND vehicle_id = $` + strconv.Itoa(argPos)
		args = append(args, vehicleID)
		argPos++
	}
	if status != "" {
		where += ` AND status = $` + strconv.Itoa(argPos)
		args = append(args, status)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM maintenance_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + orderColumns + ` FROM maintenance_orders` + where +
		` ORDER BY id DESC LIMIT $` + strconv.Itoa(argPos) + ` OFFSET $` + strconv.Itoa(argPos+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (t *txRepo) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM maintenance_orders WHERE id = $1 FOR UPDATE`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, fmt.Errorf("maintenance order %d: %w", id, shared.ErrNotFound)
		}
		return Order{}, err
	}
	return o, nil
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

func (t *txRepo) InsertOrder(ctx context.Context, o Order) (Order, error) {
	row := t.tx.QueryRow(ctx, `INSERT INTO maintenance_orders
(vehicle_id, order_type, description, status, opened_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW(),NOW()) RETURNING `+orderColumns,
		o.VehicleID, o.Type, o.Description, o.Status, o.OpenedAt)
	return scanOrder(row)
}

func (t *txRepo) UpdateOrder(ctx context.Context, o Order) error {
	tag, err := t.tx.Exec(ctx, `UPDATE maintenance_orders SET
description = $1, status = $2, closed_at = $3, updated_at = NOW() WHERE id = $4`,
		o.Description, o.Status, o.ClosedAt, o.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("maintenance order %d: %w", o.ID, shared.ErrNotFound)
	}
	return nil
}
