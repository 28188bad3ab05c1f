package domain

import "regexp"

// List of delivery statuses
const (
	StatusCreated   DeliveryStatus = "created"
	StatusAssigned  DeliveryStatus = "assigned"
	StatusPickedUp  DeliveryStatus = "picked_up"
	StatusInTransit DeliveryStatus = "in_transit"
	StatusDelivered DeliveryStatus = "delivered"
	StatusCancelled DeliveryStatus = "cancelled"
	StatusReturned  DeliveryStatus = "returned"
	StatusFailed    DeliveryStatus = "failed"
)

// List of supported vehicle types
const (
	VehicleBike      VehicleType = "bike"
	VehicleMotorbike VehicleType = "motorbike"
	VehicleCar       VehicleType = "car"
	VehicleVan       VehicleType = "van"
)

// List of item types
const (
	ItemDocument    ItemType = "document"
	ItemParcel      ItemType = "parcel"
	ItemFood        ItemType = "food"
	ItemElectronics ItemType = "electronics"
	ItemFurniture   ItemType = "furniture"
)

// List of payment methods
const (
	PayCash     PaymentMethod = "cash"
	PayCard     PaymentMethod = "card"
	PayTransfer PaymentMethod = "transfer"
)

// List of payment statuses
const (
	PaymentPending       PaymentStatus = "pending"
	PaymentPaid          PaymentStatus = "paid"
	PaymentRefunded      PaymentStatus = "refunded"
	PaymentRefundPending PaymentStatus = "refund_pending"
	PaymentFailed        PaymentStatus = "failed"
)

// List of actors that may cancel a delivery
const (
	ActorCustomer CancelActor = "customer"
	ActorDriver   CancelActor = "driver"
	ActorAdmin    CancelActor = "admin"
)

// transitions is the single source of truth for legal status changes.
// Statuses absent from the map are terminal.
var transitions = map[DeliveryStatus][]DeliveryStatus{
	StatusCreated:   {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusPickedUp, StatusCancelled},
	StatusPickedUp:  {StatusInTransit, StatusCancelled, StatusReturned, StatusFailed},
	StatusInTransit: {StatusDelivered, StatusReturned, StatusFailed},
}

var allStatuses = [...]DeliveryStatus{
	StatusCreated, StatusAssigned, StatusPickedUp, StatusInTransit,
	StatusDelivered, StatusCancelled, StatusReturned, StatusFailed,
}

var allowedVehicleTypes = [...]VehicleType{
	VehicleBike, VehicleMotorbike, VehicleCar, VehicleVan,
}

var allowedItemTypes = [...]ItemType{
	ItemDocument, ItemParcel, ItemFood, ItemElectronics, ItemFurniture,
}

var allowedPaymentMethods = [...]PaymentMethod{
	PayCash, PayCard, PayTransfer,
}

var allowedCancelActors = [...]CancelActor{
	ActorCustomer, ActorDriver, ActorAdmin,
}

// Valid checks if the DeliveryStatus is a known status.
func (s DeliveryStatus) Valid() bool {
	for _, v := range allStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s DeliveryStatus) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether the change from s to next is legal.
func (s DeliveryStatus) CanTransition(next DeliveryStatus) bool {
	for _, v := range transitions[s] {
		if v == next {
			return true
		}
	}
	return false
}

// Cancellable reports whether a delivery in this status may still be cancelled.
func (s DeliveryStatus) Cancellable() bool {
	return s.CanTransition(StatusCancelled)
}

// Valid checks if the VehicleType is valid.
func (t VehicleType) Valid() bool {
	for _, v := range allowedVehicleTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Valid checks if the ItemType is valid.
func (t ItemType) Valid() bool {
	for _, v := range allowedItemTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Valid checks if the PaymentMethod is valid.
func (m PaymentMethod) Valid() bool {
	for _, v := range allowedPaymentMethods {
		if m == v {
			return true
		}
	}
	return false
}

// Valid checks if the CancelActor is valid.
func (a CancelActor) Valid() bool {
	for _, v := range allowedCancelActors {
		if a == v {
			return true
		}
	}
	return false
}

// rePhone is a regex to validate phone numbers
var rePhone = regexp.MustCompile(`^\+[0-9]{11}$`)

// ValidatePhone validates the phone number format
func ValidatePhone(s string) bool {
	return rePhone.MatchString(s)
}
