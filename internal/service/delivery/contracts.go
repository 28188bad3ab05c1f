package delivery

import (
	"context"
	"time"

	"parcel-dispatch/internal/domain"
	"parcel-dispatch/internal/ports/deliverytx"
	"parcel-dispatch/internal/service/match"
)

type deliveryRepository interface {
	WithTx(ctx context.Context, fn func(tx deliverytx.Repository) error) error
	GetDelivery(ctx context.Context, id int64) (*domain.DeliveryRequest, error)
	GetTracking(ctx context.Context, deliveryID int64, limit int) ([]domain.TrackingPoint, error)
	ListStalledCreated(ctx context.Context, cutoff time.Time, limit int) ([]domain.DeliveryRequest, error)
	SetRating(ctx context.Context, id int64, rating int) (bool, error)
}

type driverGetter interface {
	Get(ctx context.Context, id int64) (*domain.Driver, error)
}

type candidateRanker interface {
	Rank(ctx context.Context, pickup domain.Location, radiusKm float64, vehicle *domain.VehicleType) ([]match.Candidate, error)
}

// addressResolver turns coordinates into a human-readable address. It is an
// enrichment step only; resolution failures never block delivery creation.
type addressResolver interface {
	ResolveAddress(ctx context.Context, lat, lng float64) (string, error)
}

type broadcast interface {
	Start(deliveryID, customerID int64, candidates []domain.Driver)
	Advance(deliveryID, driverID int64)
	Settle(deliveryID int64)
	Active(deliveryID int64) bool
}

// ReferenceFactory mints customer-facing delivery reference ids.
type ReferenceFactory interface {
	NewReference(now time.Time) string
}
