package domain

import "time"

type (
	// DeliveryStatus represents the lifecycle status of a delivery request.
	DeliveryStatus string
	// VehicleType represents the vehicle class of a driver.
	VehicleType string
	// ItemType classifies the transported item.
	ItemType string
	// PaymentMethod is how the customer pays for a delivery.
	PaymentMethod string
	// PaymentStatus is the settlement state of a delivery payment.
	PaymentStatus string
	// CancelActor identifies who requested a cancellation.
	CancelActor string
)

// Location is a geographic point with an optional resolved address.
type Location struct {
	Lat          float64
	Lng          float64
	Address      string
	Instructions string
}

// Item describes the transported goods.
type Item struct {
	Type          ItemType
	WeightKg      float64
	DeclaredValue float64
	Fragile       bool
}

// FareBreakdown itemises the delivery fare. Base + Distance + Weight +
// Surcharge + Insurance equals Total before the final rounding step.
type FareBreakdown struct {
	Base      float64
	Distance  float64
	Weight    float64
	Surcharge float64
	Insurance float64
	Total     float64
	Currency  string
}

// Payment is the payment sub-record of a delivery request. PaymentID refers
// to the external payment collaborator's entity and is otherwise opaque.
type Payment struct {
	Method    PaymentMethod
	Status    PaymentStatus
	PaymentID string
}

// Cancellation records who cancelled a delivery, why, and the fee charged.
type Cancellation struct {
	Actor        CancelActor
	Reason       string
	Fee          float64
	RefundStatus PaymentStatus
	CancelledAt  time.Time
}

// TrackingPoint is one entry of the append-only tracking history.
type TrackingPoint struct {
	DeliveryID int64
	Lat        float64
	Lng        float64
	RecordedAt time.Time
}

// DeliveryRequest is a customer's delivery order. DriverID is nil until the
// assignment transaction binds a driver; it must equal the driver whose
// CurrentDeliveryID points back at this request.
type DeliveryRequest struct {
	ID          int64
	ReferenceID string
	CustomerID  int64
	Pickup      Location
	Dropoff     Location
	Item        Item
	VehicleType VehicleType
	Fare        FareBreakdown
	Payment     Payment
	DriverID    *int64
	Status      DeliveryStatus

	CreatedAt   time.Time
	AssignedAt  *time.Time
	PickedUpAt  *time.Time
	InTransitAt *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
	ReturnedAt  *time.Time
	FailedAt    *time.Time

	Cancellation *Cancellation
	Rating       *int
}

// StampEntered records the timestamp for the status being entered.
func (d *DeliveryRequest) StampEntered(status DeliveryStatus, at time.Time) {
	switch status {
	case StatusAssigned:
		d.AssignedAt = &at
	case StatusPickedUp:
		d.PickedUpAt = &at
	case StatusInTransit:
		d.InTransitAt = &at
	case StatusDelivered:
		d.DeliveredAt = &at
	case StatusCancelled:
		d.CancelledAt = &at
	case StatusReturned:
		d.ReturnedAt = &at
	case StatusFailed:
		d.FailedAt = &at
	}
}

// CancelResult is the outcome of a cancellation reported to the caller.
type CancelResult struct {
	Delivery     *DeliveryRequest
	Fee          float64
	RefundAmount float64
	RefundStatus PaymentStatus
}

// AssignResult reports a successful driver assignment.
type AssignResult struct {
	DeliveryID  int64
	ReferenceID string
	DriverID    int64
	AssignedAt  time.Time
}

// TrackResult is a point-in-time tracking snapshot for a delivery.
type TrackResult struct {
	Status         DeliveryStatus
	DriverID       *int64
	DriverLocation *Location
	EtaMinutes     *int
}
