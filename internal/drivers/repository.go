package drivers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/locafrota/locafrota/internal/shared"
)

// Repository defines data access for drivers.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]Driver, int, error)
	Get(ctx context.Context, id int64) (Driver, error)
	Create(ctx context.Context, d Driver) (Driver, error)
	Update(ctx context.Context, id int64, d Driver) error
	SetBlacklisted(ctx context.Context, id int64, blacklisted bool) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const driverColumns = `id, name, document, license, phone, active, blacklisted, created_at, updated_at`

func scanDriver(row pgx.Row) (Driver, error) {
	var d Driver
	err := row.Scan(&d.ID, &d.Name, &d.Document, &d.License, &d.Phone, &d.Active, &d.Blacklisted, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (r *pgRepository) List(ctx context.Context, limit, offset int) ([]Driver, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM drivers`).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+driverColumns+` FROM drivers ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Driver, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id)
	d, err := scanDriver(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Driver{}, fmt.Errorf("driver %d: %w", id, shared.ErrNotFound)
		}
		return Driver{}, err
	}
	return d, nil
}

func (r *pgRepository) Create(ctx context.Context, d Driver) (Driver, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO drivers (name, document, license, phone, active, blacklisted, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, false, NOW(), NOW()) RETURNING `+driverColumns,
		d.Name, d.Document, d.License, d.Phone, d.Active)
	created, err := scanDriver(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Driver{}, fmt.Errorf("driver document %s already registered: %w", d.Document, shared.ErrConflict)
		}
		return Driver{}, err
	}
	return created, nil
}

func (r *pgRepository) Update(ctx context.Context, id int64, d Driver) error {
	tag, err := r.pool.Exec(ctx, `UPDATE drivers SET name = $1, document = $2, license = $3, phone = $4, active = $5, updated_at = NOW() WHERE id = $6`,
		d.Name, d.Document, d.License, d.Phone, d.Active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("driver %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *pgRepository) SetBlacklisted(ctx context.Context, id int64, blacklisted bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE drivers SET blacklisted = $1, updated_at = NOW() WHERE id = $2`, blacklisted, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("driver %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
