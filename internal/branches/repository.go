package branches

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/locafrota/locafrota/internal/shared"
)

// Repository defines data access for branches.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]Branch, int, error)
	Get(ctx context.Context, id int64) (Branch, error)
	Create(ctx context.Context, b Branch) (Branch, error)
	Update(ctx context.Context, id int64, b Branch) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const branchColumns = `id, code, name, city, active, created_at, updated_at`

func scanBranch(row pgx.Row) (Branch, error) {
	var b Branch
	err := row.Scan(&b.ID, &b.Code, &b.Name, &b.City, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (r *pgRepository) List(ctx context.Context, limit, offset int) ([]Branch, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM branches`).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+branchColumns+` FROM branches ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Branch, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+branchColumns+` FROM branches WHERE id = $1`, id)
	b, err := scanBranch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Branch{}, fmt.Errorf("branch %d: %w", id, shared.ErrNotFound)
		}
		return Branch{}, err
	}
	return b, nil
}

func (r *pgRepository) Create(ctx context.Context, b Branch) (Branch, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO branches (code, name, city, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING `+branchColumns,
		b.Code, b.Name, b.City, b.Active)
	created, err := scanBranch(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Branch{}, fmt.Errorf("branch code %q already exists: %w", b.Code, shared.ErrConflict)
		}
		return Branch{}, err
	}
	return created, nil
}

func (r *pgRepository) Update(ctx context.Context, id int64, b Branch) error {
	tag, err := r.pool.Exec(ctx, `UPDATE branches SET code = $1, name = $2, city = $3, active = $4, updated_at = NOW() WHERE id = $5`,
		b.Code, b.Name, b.City, b.Active, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("branch code %q already exists: %w", b.Code, shared.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("branch %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
