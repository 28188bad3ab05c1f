package deliverytx

import (
	"context"
	"time"

	"parcel-dispatch/internal/domain"
)

// Repository is the transaction-scoped view of the delivery store. Every
// method runs inside the surrounding transaction; conditional writes return
// false when their guard predicate no longer holds.
type Repository interface {
	GetDeliveryForUpdate(ctx context.Context, id int64) (*domain.DeliveryRequest, error)
	GetDriverForUpdate(ctx context.Context, id int64) (*domain.Driver, error)

	InsertDelivery(ctx context.Context, d *domain.DeliveryRequest) error

	// BindDelivery attaches the driver to a delivery that is still in
	// `created` with no driver bound.
	BindDelivery(ctx context.Context, deliveryID, driverID int64, at time.Time) (bool, error)
	// BindDriver attaches the delivery to a driver that is still online,
	// available, approved and unassigned, flipping availability off.
	BindDriver(ctx context.Context, driverID, deliveryID int64) (bool, error)

	// UpdateStatus moves a delivery from one exact status to another and
	// stamps the entered-state timestamp column.
	UpdateStatus(ctx context.Context, id int64, from, to domain.DeliveryStatus, at time.Time) (bool, error)

	// ReleaseDriver clears the driver's current assignment and restores
	// availability, guarded on the assignment still pointing at deliveryID.
	ReleaseDriver(ctx context.Context, driverID, deliveryID int64) (bool, error)

	IncrementDriverCompleted(ctx context.Context, driverID int64) error

	SetCancellation(ctx context.Context, id int64, c domain.Cancellation) error
	SetPaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error

	InsertTrackingPoint(ctx context.Context, p domain.TrackingPoint) error
}

// Runner is a transaction runner
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
