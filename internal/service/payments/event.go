package payments

import (
	"time"
)

// Event is a single payment settlement event from the payment provider.
type Event struct {
	PaymentID  string    `json:"payment_id"`
	DeliveryID int64     `json:"delivery_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
