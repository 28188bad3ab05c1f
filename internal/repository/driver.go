package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"parcel-dispatch/internal/apperr"
	"parcel-dispatch/internal/domain"
)

// DriverRepo represents the driver store.
type DriverRepo struct{ db *pgxpool.Pool }

// NewDriverRepo creates a new DriverRepo.
func NewDriverRepo(db *pgxpool.Pool) *DriverRepo { return &DriverRepo{db: db} }

const driverColumns = `
	id, name, phone, online, available, approved, current_delivery_id,
	vehicle_type, lat, lng, location_at, rating, completed_count`

func scanDriver(row rowScanner) (*domain.Driver, error) {
	var d domain.Driver
	err := row.Scan(
		&d.ID, &d.Name, &d.Phone, &d.Online, &d.Available, &d.Approved,
		&d.CurrentDeliveryID, &d.VehicleType, &d.Lat, &d.Lng, &d.LocationAt,
		&d.Rating, &d.CompletedCount,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Get - returns driver by its ID, nil when absent.
func (r *DriverRepo) Get(ctx context.Context, id int64) (*domain.Driver, error) {
	row := r.db.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id)
	d, err := scanDriver(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get driver %d: %w", id, err)
	}
	return d, nil
}

// Create - creates a new driver.
func (r *DriverRepo) Create(ctx context.Context, d *domain.Driver) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
        INSERT INTO drivers (name, phone, online, available, approved, vehicle_type, rating)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `, d.Name, d.Phone, d.Online, d.Available, d.Approved, string(d.VehicleType), d.Rating).Scan(&id)
	if err != nil {
		if IsDuplicate(err) {
			return 0, apperr.ErrConflict
		}
		return 0, fmt.Errorf("create driver: %w", err)
	}
	return id, nil
}

// UpdatePartial applies a partial update to a driver and returns true if a row was affected.
func (r *DriverRepo) UpdatePartial(ctx context.Context, u domain.PartialDriverUpdate) (bool, error) {
	ct, err := r.db.Exec(ctx, `
        UPDATE drivers
        SET
            name         = COALESCE($2, name),
            phone        = COALESCE($3, phone),
            online       = COALESCE($4, online),
            available    = COALESCE($5, available),
            approved     = COALESCE($6, approved),
            vehicle_type = COALESCE($7, vehicle_type),
            updated_at   = now()
        WHERE id = $1
    `, u.ID, u.Name, u.Phone, u.Online, u.Available, u.Approved, (*string)(u.VehicleType))

	if err != nil {
		if IsDuplicate(err) {
			return false, apperr.ErrConflict
		}
		return false, fmt.Errorf("update driver %d: %w", u.ID, err)
	}
	return ct.RowsAffected() > 0, nil
}

// UpdateLocation stores the driver's last known position.
func (r *DriverRepo) UpdateLocation(ctx context.Context, id int64, lat, lng float64, at time.Time) (bool, error) {
	ct, err := r.db.Exec(ctx, `
        UPDATE drivers
        SET lat = $2, lng = $3, location_at = $4, updated_at = now()
        WHERE id = $1
    `, id, lat, lng, at)
	if err != nil {
		return false, fmt.Errorf("update location for driver %d: %w", id, err)
	}
	return ct.RowsAffected() > 0, nil
}

// List returns drivers with optional pagination.
func (r *DriverRepo) List(ctx context.Context, limit, offset *int) ([]domain.Driver, error) {
	q := `SELECT ` + driverColumns + ` FROM drivers ORDER BY id`
	args := make([]any, 0, 2)
	if limit != nil {
		args = append(args, *limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if offset != nil {
		args = append(args, *offset)
		q += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var out []domain.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// ListAssignable returns drivers that are online, available, approved,
// unassigned and have a known location. The matcher re-checks the same
// predicate in memory; the assignment transaction re-checks it at commit.
func (r *DriverRepo) ListAssignable(ctx context.Context, vehicle *domain.VehicleType) ([]domain.Driver, error) {
	q := `
        SELECT ` + driverColumns + `
        FROM drivers
        WHERE online AND available AND approved
          AND current_delivery_id IS NULL
          AND lat IS NOT NULL AND lng IS NOT NULL`
	args := make([]any, 0, 1)
	if vehicle != nil {
		q += ` AND vehicle_type = $1`
		args = append(args, string(*vehicle))
	}
	q += ` ORDER BY id`

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignable drivers: %w", err)
	}
	defer rows.Close()

	var out []domain.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
