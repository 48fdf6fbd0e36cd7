package vehicles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/locafrota/locafrota/internal/shared"
)

// Repository provides PostgreSQL backed persistence for vehicles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const vehicleColumns = `id, plate, category, status, current_odometer, created_at, updated_at`

func scanVehicle(row pgx.Row) (Vehicle, error) {
	var v Vehicle
	err := row.Scan(&v.ID, &v.Plate, &v.Category, &v.Status, &v.CurrentOdometer, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// Get retrieves a vehicle by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Vehicle, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id)
	v, err := scanVehicle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vehicle{}, fmt.Errorf("vehicle %d: %w", id, shared.ErrNotFound)
		}
		return Vehicle{}, err
	}
	return v, nil
}

// List returns vehicles matching the filters plus the unfiltered total.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Vehicle, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	argPos := 1
	if filters.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, filters.Status)
		argPos++
	}
	if filters.Category != "" {
		where += fmt.Sprintf(" AND category = $%d", argPos)
		args = append(args, filters.Category)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vehicles `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT `+vehicleColumns+` FROM vehicles %s ORDER BY plate LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)
	args = append(args, limit, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

// Create inserts a vehicle. New vehicles always start AVAILABLE.
func (r *Repository) Create(ctx context.Context, v Vehicle) (Vehicle, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO vehicles (plate, category, status, current_odometer, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING `+vehicleColumns,
		v.Plate, v.Category, StatusAvailable, v.CurrentOdometer)
	created, err := scanVehicle(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Vehicle{}, fmt.Errorf("vehicle plate %s already registered: %w", v.Plate, shared.ErrConflict)
		}
		return Vehicle{}, err
	}
	return created, nil
}

// Update persists plate, category and odometer. Allocation state is not
// touched here; only the lifecycle and maintenance paths write status.
func (r *Repository) Update(ctx context.Context, id int64, v Vehicle) error {
	tag, err := r.pool.Exec(ctx, `UPDATE vehicles SET plate = $1, category = $2, current_odometer = $3, updated_at = NOW() WHERE id = $4`,
		v.Plate, v.Category, v.CurrentOdometer, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("vehicle plate %s already registered: %w", v.Plate, shared.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vehicle %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// SetStatus flips the allocation state outside contract transactions.
// Reserved for administrative INACTIVE/AVAILABLE moves and maintenance.
func (r *Repository) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE vehicles SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vehicle %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// CountByStatus aggregates the fleet per allocation state.
func (r *Repository) CountByStatus(ctx context.Context) (FleetSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM vehicles GROUP BY status`)
	if err != nil {
		return FleetSummary{}, err
	}
	defer rows.Close()

	var summary FleetSummary
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return FleetSummary{}, err
		}
		summary.Total += count
		switch status {
		case StatusAvailable:
			summary.Available = count
		case StatusRented:
			summary.Rented = count
		case StatusMaintenance:
			summary.Maintenance = count
		case StatusInspection:
			summary.Inspection = count
		case StatusInactive:
			summary.Inactive = count
		}
	}
	return summary, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
