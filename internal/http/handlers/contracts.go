package handlers

import (
	"context"

	"parcel-dispatch/internal/domain"
	"parcel-dispatch/internal/service/cancel"
	"parcel-dispatch/internal/service/delivery"
	"parcel-dispatch/internal/service/driver"
	"parcel-dispatch/internal/service/lifecycle"
)

type driverUsecase interface {
	Get(ctx context.Context, id int64) (*domain.Driver, error)
	List(ctx context.Context, limit, offset *int) ([]domain.Driver, error)
	Create(ctx context.Context, d *domain.Driver) (int64, error)
	UpdatePartial(ctx context.Context, u domain.PartialDriverUpdate) (bool, error)
	Heartbeat(ctx context.Context, id int64, lat, lng float64) error
}

// NewDriverUsecase wires a driver.Service into a driverUsecase.
func NewDriverUsecase(service *driver.Service) driverUsecase {
	return service
}

type deliveryUsecase interface {
	Create(ctx context.Context, in delivery.CreateInput) (*domain.DeliveryRequest, error)
	Get(ctx context.Context, id int64) (*domain.DeliveryRequest, error)
	Accept(ctx context.Context, deliveryID, driverID int64) (domain.AssignResult, error)
	Track(ctx context.Context, id int64) (domain.TrackResult, []domain.TrackingPoint, error)
	Rebroadcast(ctx context.Context, id int64) error
	Rate(ctx context.Context, id int64, rating int) error
}

// NewDeliveryUsecase wires a delivery.Service into a deliveryUsecase.
func NewDeliveryUsecase(svc *delivery.Service) deliveryUsecase {
	return svc
}

type lifecycleUsecase interface {
	Advance(ctx context.Context, in lifecycle.AdvanceInput) (*domain.DeliveryRequest, error)
}

// NewLifecycleUsecase wires a lifecycle.Service into a lifecycleUsecase.
func NewLifecycleUsecase(svc *lifecycle.Service) lifecycleUsecase {
	return svc
}

type cancelUsecase interface {
	Cancel(ctx context.Context, in cancel.Input) (domain.CancelResult, error)
}

// NewCancelUsecase wires a cancel.Service into a cancelUsecase.
func NewCancelUsecase(svc *cancel.Service) cancelUsecase {
	return svc
}
