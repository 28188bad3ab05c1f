package payments

import (
	"context"

	"parcel-dispatch/internal/domain"
)

// settlementStore is the subset of the delivery store the processor needs to
// apply settlement events.
type settlementStore interface {
	GetDelivery(ctx context.Context, id int64) (*domain.DeliveryRequest, error)
	RecordSettlement(ctx context.Context, id int64, paymentID string, status domain.PaymentStatus) (bool, error)
}
