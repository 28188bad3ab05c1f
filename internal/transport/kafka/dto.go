package kafka

import (
	"strings"
	"time"

	"parcel-dispatch/internal/service/payments"
)

// EventDTO is a data transfer object for payments.Event
type EventDTO struct {
	PaymentID  string    `json:"payment_id"`
	DeliveryID int64     `json:"delivery_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToDomain converts EventDTO to payments.Event
func ToDomain(dto EventDTO) payments.Event {
	return payments.Event{
		PaymentID:  strings.TrimSpace(dto.PaymentID),
		DeliveryID: dto.DeliveryID,
		Status:     strings.TrimSpace(dto.Status),
		CreatedAt:  dto.CreatedAt,
	}
}
