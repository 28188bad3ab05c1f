package handlers

import (
	"time"

	"parcel-dispatch/internal/domain"
)

type driverDTO struct {
	ID             int64              `json:"id"`
	Name           string             `json:"name"`
	Phone          string             `json:"phone"`
	Online         bool               `json:"online"`
	Available      bool               `json:"available"`
	Approved       bool               `json:"approved"`
	VehicleType    domain.VehicleType `json:"vehicle_type"`
	CurrentDelID   *int64             `json:"current_delivery_id,omitempty"`
	Lat            *float64           `json:"lat,omitempty"`
	Lng            *float64           `json:"lng,omitempty"`
	LocationAt     *time.Time         `json:"location_at,omitempty"`
	Rating         float64            `json:"rating"`
	CompletedCount int64              `json:"completed_count"`
}

type createDriverRequest struct {
	Name        string             `json:"name"`
	Phone       string             `json:"phone"`
	VehicleType domain.VehicleType `json:"vehicle_type"`
}

type updateDriverRequest struct {
	ID          int64               `json:"id"`
	Name        *string             `json:"name,omitempty"`
	Phone       *string             `json:"phone,omitempty"`
	Online      *bool               `json:"online,omitempty"`
	Available   *bool               `json:"available,omitempty"`
	Approved    *bool               `json:"approved,omitempty"`
	VehicleType *domain.VehicleType `json:"vehicle_type,omitempty"`
}

type heartbeatRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
