package handlers

import (
	"time"

	"parcel-dispatch/internal/domain"
)

type locationDTO struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Address      string  `json:"address,omitempty"`
	Instructions string  `json:"instructions,omitempty"`
}

type itemDTO struct {
	Type          domain.ItemType `json:"type"`
	WeightKg      float64         `json:"weight_kg"`
	DeclaredValue float64         `json:"declared_value,omitempty"`
	Fragile       bool            `json:"fragile,omitempty"`
}

type fareDTO struct {
	Base      float64 `json:"base"`
	Distance  float64 `json:"distance"`
	Weight    float64 `json:"weight"`
	Surcharge float64 `json:"surcharge"`
	Insurance float64 `json:"insurance"`
	Total     float64 `json:"total"`
	Currency  string  `json:"currency"`
}

type paymentDTO struct {
	Method    domain.PaymentMethod `json:"method"`
	Status    domain.PaymentStatus `json:"status"`
	PaymentID string               `json:"payment_id,omitempty"`
}

type cancellationDTO struct {
	Actor        domain.CancelActor   `json:"actor"`
	Reason       string               `json:"reason"`
	Fee          float64              `json:"fee"`
	RefundStatus domain.PaymentStatus `json:"refund_status,omitempty"`
	CancelledAt  time.Time            `json:"cancelled_at"`
}

type createDeliveryRequest struct {
	CustomerID    int64                `json:"customer_id"`
	Pickup        locationDTO          `json:"pickup"`
	Dropoff       locationDTO          `json:"dropoff"`
	Item          itemDTO              `json:"item"`
	VehicleType   domain.VehicleType   `json:"vehicle_type"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
}

type deliveryResponse struct {
	ID           int64                 `json:"id"`
	ReferenceID  string                `json:"reference_id"`
	CustomerID   int64                 `json:"customer_id"`
	Status       domain.DeliveryStatus `json:"status"`
	Pickup       locationDTO           `json:"pickup"`
	Dropoff      locationDTO           `json:"dropoff"`
	Item         itemDTO               `json:"item"`
	VehicleType  domain.VehicleType    `json:"vehicle_type"`
	Fare         fareDTO               `json:"fare"`
	Payment      paymentDTO            `json:"payment"`
	DriverID     *int64                `json:"driver_id,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	AssignedAt   *time.Time            `json:"assigned_at,omitempty"`
	PickedUpAt   *time.Time            `json:"picked_up_at,omitempty"`
	InTransitAt  *time.Time            `json:"in_transit_at,omitempty"`
	DeliveredAt  *time.Time            `json:"delivered_at,omitempty"`
	CancelledAt  *time.Time            `json:"cancelled_at,omitempty"`
	ReturnedAt   *time.Time            `json:"returned_at,omitempty"`
	FailedAt     *time.Time            `json:"failed_at,omitempty"`
	Cancellation *cancellationDTO      `json:"cancellation,omitempty"`
	Rating       *int                  `json:"rating,omitempty"`
}

type acceptDeliveryRequest struct {
	DriverID int64 `json:"driver_id"`
}

type acceptDeliveryResponse struct {
	DeliveryID  int64     `json:"delivery_id"`
	ReferenceID string    `json:"reference_id"`
	DriverID    int64     `json:"driver_id"`
	AssignedAt  time.Time `json:"assigned_at"`
}

type advanceStatusRequest struct {
	Status   domain.DeliveryStatus `json:"status"`
	DriverID *int64                `json:"driver_id,omitempty"`
	Location *locationDTO          `json:"location,omitempty"`
}

type cancelDeliveryRequest struct {
	Actor  domain.CancelActor `json:"actor"`
	Reason string             `json:"reason"`
}

type cancelDeliveryResponse struct {
	DeliveryID   int64                 `json:"delivery_id"`
	ReferenceID  string                `json:"reference_id"`
	Status       domain.DeliveryStatus `json:"status"`
	Fee          float64               `json:"fee"`
	RefundAmount float64               `json:"refund_amount"`
	RefundStatus domain.PaymentStatus  `json:"refund_status,omitempty"`
}

type trackPointDTO struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
}

type trackDeliveryResponse struct {
	Status         domain.DeliveryStatus `json:"status"`
	DriverID       *int64                `json:"driver_id,omitempty"`
	DriverLocation *locationDTO          `json:"driver_location,omitempty"`
	EtaMinutes     *int                  `json:"eta_minutes,omitempty"`
	History        []trackPointDTO       `json:"history"`
}

type rateDeliveryRequest struct {
	Rating int `json:"rating"`
}
