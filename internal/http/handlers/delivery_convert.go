package handlers

import (
	"parcel-dispatch/internal/domain"
	"parcel-dispatch/internal/service/delivery"
)

func locationToModel(l locationDTO) domain.Location {
	return domain.Location{
		Lat:          l.Lat,
		Lng:          l.Lng,
		Address:      l.Address,
		Instructions: l.Instructions,
	}
}

func locationToResponse(l domain.Location) locationDTO {
	return locationDTO{
		Lat:          l.Lat,
		Lng:          l.Lng,
		Address:      l.Address,
		Instructions: l.Instructions,
	}
}

func (r createDeliveryRequest) toInput() delivery.CreateInput {
	return delivery.CreateInput{
		CustomerID: r.CustomerID,
		Pickup:     locationToModel(r.Pickup),
		Dropoff:    locationToModel(r.Dropoff),
		Item: domain.Item{
			Type:          r.Item.Type,
			WeightKg:      r.Item.WeightKg,
			DeclaredValue: r.Item.DeclaredValue,
			Fragile:       r.Item.Fragile,
		},
		VehicleType:   r.VehicleType,
		PaymentMethod: r.PaymentMethod,
	}
}

func deliveryToResponse(d *domain.DeliveryRequest) deliveryResponse {
	resp := deliveryResponse{
		ID:          d.ID,
		ReferenceID: d.ReferenceID,
		CustomerID:  d.CustomerID,
		Status:      d.Status,
		Pickup:      locationToResponse(d.Pickup),
		Dropoff:     locationToResponse(d.Dropoff),
		Item: itemDTO{
			Type:          d.Item.Type,
			WeightKg:      d.Item.WeightKg,
			DeclaredValue: d.Item.DeclaredValue,
			Fragile:       d.Item.Fragile,
		},
		VehicleType: d.VehicleType,
		Fare: fareDTO{
			Base:      d.Fare.Base,
			Distance:  d.Fare.Distance,
			Weight:    d.Fare.Weight,
			Surcharge: d.Fare.Surcharge,
			Insurance: d.Fare.Insurance,
			Total:     d.Fare.Total,
			Currency:  d.Fare.Currency,
		},
		Payment: paymentDTO{
			Method:    d.Payment.Method,
			Status:    d.Payment.Status,
			PaymentID: d.Payment.PaymentID,
		},
		DriverID:    d.DriverID,
		CreatedAt:   d.CreatedAt,
		AssignedAt:  d.AssignedAt,
		PickedUpAt:  d.PickedUpAt,
		InTransitAt: d.InTransitAt,
		DeliveredAt: d.DeliveredAt,
		CancelledAt: d.CancelledAt,
		ReturnedAt:  d.ReturnedAt,
		FailedAt:    d.FailedAt,
		Rating:      d.Rating,
	}
	if c := d.Cancellation; c != nil {
		resp.Cancellation = &cancellationDTO{
			Actor:        c.Actor,
			Reason:       c.Reason,
			Fee:          c.Fee,
			RefundStatus: c.RefundStatus,
			CancelledAt:  c.CancelledAt,
		}
	}
	return resp
}

func assignResultToResponse(r domain.AssignResult) acceptDeliveryResponse {
	return acceptDeliveryResponse{
		DeliveryID:  r.DeliveryID,
		ReferenceID: r.ReferenceID,
		DriverID:    r.DriverID,
		AssignedAt:  r.AssignedAt,
	}
}

func cancelResultToResponse(r domain.CancelResult) cancelDeliveryResponse {
	resp := cancelDeliveryResponse{
		Fee:          r.Fee,
		RefundAmount: r.RefundAmount,
		RefundStatus: r.RefundStatus,
	}
	if d := r.Delivery; d != nil {
		resp.DeliveryID = d.ID
		resp.ReferenceID = d.ReferenceID
		resp.Status = d.Status
	}
	return resp
}

func trackResultToResponse(r domain.TrackResult, history []domain.TrackingPoint) trackDeliveryResponse {
	resp := trackDeliveryResponse{
		Status:     r.Status,
		DriverID:   r.DriverID,
		EtaMinutes: r.EtaMinutes,
		History:    make([]trackPointDTO, 0, len(history)),
	}
	if r.DriverLocation != nil {
		loc := locationToResponse(*r.DriverLocation)
		resp.DriverLocation = &loc
	}
	for _, p := range history {
		resp.History = append(resp.History, trackPointDTO{
			Lat:        p.Lat,
			Lng:        p.Lng,
			RecordedAt: p.RecordedAt,
		})
	}
	return resp
}
