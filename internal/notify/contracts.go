package notify

import "context"

// Event is one notification pushed to a driver or customer device. Payload
// keys are flat strings so downstream consumers stay schema-free.
type Event struct {
	Kind    string            `json:"kind"`
	Payload map[string]string `json:"payload,omitempty"`
}

// Notification event kinds.
const (
	KindOffer          = "dispatch.offer"
	KindOfferWithdrawn = "dispatch.offer_withdrawn"
	KindAssigned       = "dispatch.assigned"
	KindNoDriver       = "dispatch.no_driver"
	KindStatusChanged  = "delivery.status_changed"
	KindPaymentSettled = "payment.settled"
	KindDeliveryCancel = "delivery.cancelled"
)

// Dispatcher pushes notification events out of the service. Delivery is
// best-effort; callers never block their own flow on a failed push.
type Dispatcher interface {
	NotifyDriver(ctx context.Context, driverID int64, ev Event) error
	NotifyCustomer(ctx context.Context, customerID int64, ev Event) error
}
