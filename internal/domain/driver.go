package domain

import "time"

// Driver represents a delivery driver. CurrentDeliveryID is exclusive: a
// driver holds at most one non-terminal assignment at a time.
type Driver struct {
	ID                int64
	Name              string
	Phone             string
	Online            bool
	Available         bool
	Approved          bool
	CurrentDeliveryID *int64
	VehicleType       VehicleType
	Lat               *float64
	Lng               *float64
	LocationAt        *time.Time
	Rating            float64
	CompletedCount    int64
}

// HasLocation reports whether the driver has a known last position.
func (d *Driver) HasLocation() bool {
	return d.Lat != nil && d.Lng != nil
}

// Assignable reports whether the driver may be bound to a new delivery.
// The store-level conditional write re-checks the same predicate at commit.
func (d *Driver) Assignable() bool {
	return d.Online && d.Available && d.Approved && d.CurrentDeliveryID == nil
}

// PartialDriverUpdate carries optional fields to update a driver.
// A nil field means “do not change” that attribute.
type PartialDriverUpdate struct {
	ID          int64
	Name        *string
	Phone       *string
	Online      *bool
	Available   *bool
	Approved    *bool
	VehicleType *VehicleType
}
