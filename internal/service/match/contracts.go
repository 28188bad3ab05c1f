package match

import (
	"context"

	"parcel-dispatch/internal/domain"
)

// driverSource is the authoritative store of driver records.
type driverSource interface {
	ListAssignable(ctx context.Context, vehicle *domain.VehicleType) ([]domain.Driver, error)
}

// presenceIndex narrows the candidate set using a fast geo lookup. It is an
// optimisation only: it may miss or include stale drivers, so every id it
// returns is still checked against the store record.
type presenceIndex interface {
	NearbyIDs(ctx context.Context, lat, lng, radiusKm float64) ([]int64, error)
}
