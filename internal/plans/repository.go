package plans

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/locafrota/locafrota/internal/shared"
)

// Repository defines data access for plans.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]Plan, int, error)
	Get(ctx context.Context, id int64) (Plan, error)
	Create(ctx context.Context, p Plan) (Plan, error)
	Update(ctx context.Context, id int64, p Plan) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const planColumns = `id, name, description, allowed_categories, active, created_at, updated_at`

func scanPlan(row pgx.Row) (Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.AllowedCategories, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *pgRepository) List(ctx context.Context, limit, offset int) ([]Plan, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM plans`).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+planColumns+` FROM plans ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Plan, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Plan{}, fmt.Errorf("plan %d: %w", id, shared.ErrNotFound)
		}
		return Plan{}, err
	}
	return p, nil
}

func (r *pgRepository) Create(ctx context.Context, p Plan) (Plan, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO plans (name, description, allowed_categories, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING `+planColumns,
		p.Name, p.Description, p.AllowedCategories, p.Active)
	return scanPlan(row)
}

func (r *pgRepository) Update(ctx context.Context, id int64, p Plan) error {
	tag, err := r.pool.Exec(ctx, `UPDATE plans SET name = $1, description = $2, allowed_categories = $3, active = $4, updated_at = NOW() WHERE id = $5`,
		p.Name, p.Description, p.AllowedCategories, p.Active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("plan %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
