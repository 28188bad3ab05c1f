package cancel

import (
	"context"

	"parcel-dispatch/internal/domain"
	"parcel-dispatch/internal/ports/deliverytx"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx deliverytx.Repository) error) error
}

// refundOutcomeWriter persists the final refund state once the gateway call
// settles, on both the payment and the cancellation record.
type refundOutcomeWriter interface {
	SetRefundOutcome(ctx context.Context, id int64, status domain.PaymentStatus) error
}

type refunder interface {
	Refund(ctx context.Context, paymentID string, amount float64) error
}

// broadcastAborter stops an in-flight dispatch broadcast so no further
// offers go out for a cancelled delivery.
type broadcastAborter interface {
	Abort(deliveryID int64)
}
