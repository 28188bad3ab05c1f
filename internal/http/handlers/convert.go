package handlers

import "parcel-dispatch/internal/domain"

func (r createDriverRequest) toModel() *domain.Driver {
	return &domain.Driver{
		Name:        r.Name,
		Phone:       r.Phone,
		VehicleType: r.VehicleType,
	}
}

func (r updateDriverRequest) toModel() domain.PartialDriverUpdate {
	return domain.PartialDriverUpdate{
		ID:          r.ID,
		Name:        r.Name,
		Phone:       r.Phone,
		Online:      r.Online,
		Available:   r.Available,
		Approved:    r.Approved,
		VehicleType: r.VehicleType,
	}
}

func driverToResponse(d domain.Driver) driverDTO {
	return driverDTO{
		ID:             d.ID,
		Name:           d.Name,
		Phone:          d.Phone,
		Online:         d.Online,
		Available:      d.Available,
		Approved:       d.Approved,
		VehicleType:    d.VehicleType,
		CurrentDelID:   d.CurrentDeliveryID,
		Lat:            d.Lat,
		Lng:            d.Lng,
		LocationAt:     d.LocationAt,
		Rating:         d.Rating,
		CompletedCount: d.CompletedCount,
	}
}

func driversToResponse(list []domain.Driver) []driverDTO {
	out := make([]driverDTO, 0, len(list))
	for _, d := range list {
		out = append(out, driverToResponse(d))
	}
	return out
}
