package driver

import (
	"context"
	"time"

	"parcel-dispatch/internal/domain"
)

// driverRepository defines storage operations required by the business layer.
type driverRepository interface {
	Get(ctx context.Context, id int64) (*domain.Driver, error)
	List(ctx context.Context, limit, offset *int) ([]domain.Driver, error)
	Create(ctx context.Context, d *domain.Driver) (int64, error)
	UpdatePartial(ctx context.Context, u domain.PartialDriverUpdate) (bool, error)
	UpdateLocation(ctx context.Context, id int64, lat, lng float64, at time.Time) (bool, error)
}

// presenceRecorder mirrors driver positions into the fast geo index used by
// the matcher. Failures are tolerated; the store stays authoritative.
type presenceRecorder interface {
	Record(ctx context.Context, driverID int64, lat, lng float64) error
}
