package cancel

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"parcel-dispatch/internal/apperr"
	"parcel-dispatch/internal/domain"
	"parcel-dispatch/internal/logx"
	"parcel-dispatch/internal/notify"
	"parcel-dispatch/internal/ports/deliverytx"
)

// Cancellation fee rates by the status the delivery is leaving. The further
// along the delivery is, the more of the fare the customer forfeits.
var feeRates = map[domain.DeliveryStatus]float64{
	domain.StatusCreated:  0,
	domain.StatusAssigned: 0.10,
	domain.StatusPickedUp: 0.20,
}

// Service cancels deliveries. The local state change commits first; only then
// is the refund sent to the payment gateway, so a gateway outage can never
// leave a cancelled delivery half-rolled-back. A failed refund is parked as
// refund_pending for later reconciliation.
type Service struct {
	repo             txRunner
	store            refundOutcomeWriter
	payments         refunder
	broadcasts       broadcastAborter
	notifier         notify.Dispatcher
	refundsPending   prometheus.Counter
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewService - creates a new cancellation Service.
func NewService(
	repo txRunner,
	store refundOutcomeWriter,
	payments refunder,
	broadcasts broadcastAborter,
	notifier notify.Dispatcher,
	refundsPending prometheus.Counter,
	timeout time.Duration,
	logger logx.Logger,
) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		repo:             repo,
		store:            store,
		payments:         payments,
		broadcasts:       broadcasts,
		notifier:         notifier,
		refundsPending:   refundsPending,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Input describes one cancellation request.
type Input struct {
	DeliveryID int64
	Actor      domain.CancelActor
	Reason     string
}

// Cancel cancels a delivery. Repeating a cancellation is a no-op that returns
// the recorded outcome; it never charges a second fee or refunds twice.
func (s *Service) Cancel(ctx context.Context, in Input) (domain.CancelResult, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if in.DeliveryID <= 0 || !in.Actor.Valid() || in.Reason == "" {
		return domain.CancelResult{}, apperr.ErrValidation
	}

	ctx, cancelFn := context.WithTimeout(ctx, s.operationTimeout)
	defer cancelFn()

	var (
		result     domain.CancelResult
		fromStatus domain.DeliveryStatus
		needRefund bool
		paymentID  string
	)

	err := s.repo.WithTx(ctx, func(tx deliverytx.Repository) error {
		d, err := tx.GetDeliveryForUpdate(ctx, in.DeliveryID)
		if err != nil {
			return err
		}
		if d == nil {
			return apperr.ErrNotFound
		}

		if d.Status == domain.StatusCancelled {
			result = resultFromRecord(d)
			return nil
		}
		if !d.Status.Cancellable() {
			return apperr.NewTransition(string(d.Status), string(domain.StatusCancelled))
		}

		now := s.now()
		fromStatus = d.Status
		fee := roundMoney(feeRates[d.Status] * d.Fare.Total)
		needRefund = d.Payment.Method != domain.PayCash && d.Payment.Status == domain.PaymentPaid
		paymentID = d.Payment.PaymentID

		ok, err := tx.UpdateStatus(ctx, d.ID, d.Status, domain.StatusCancelled, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrConflict
		}

		if d.DriverID != nil {
			if _, err := tx.ReleaseDriver(ctx, *d.DriverID, d.ID); err != nil {
				return err
			}
		}

		c := domain.Cancellation{
			Actor:       in.Actor,
			Reason:      in.Reason,
			Fee:         fee,
			CancelledAt: now,
		}
		if needRefund {
			c.RefundStatus = domain.PaymentRefundPending
			if err := tx.SetPaymentStatus(ctx, d.ID, domain.PaymentRefundPending); err != nil {
				return err
			}
		}
		if err := tx.SetCancellation(ctx, d.ID, c); err != nil {
			return err
		}

		d.Status = domain.StatusCancelled
		d.CancelledAt = &now
		d.Cancellation = &c
		result = domain.CancelResult{
			Delivery:     d,
			Fee:          fee,
			RefundStatus: c.RefundStatus,
		}
		if needRefund {
			result.RefundAmount = roundMoney(d.Fare.Total - fee)
		}
		return nil
	})
	if err != nil {
		return domain.CancelResult{}, err
	}
	if fromStatus == "" {
		// Already cancelled before this call.
		return result, nil
	}

	if fromStatus == domain.StatusCreated {
		s.broadcasts.Abort(in.DeliveryID)
	}

	if needRefund {
		result.RefundStatus = s.refund(ctx, in.DeliveryID, paymentID, result.RefundAmount)
		if result.Delivery.Cancellation != nil {
			result.Delivery.Cancellation.RefundStatus = result.RefundStatus
		}
		result.Delivery.Payment.Status = result.RefundStatus
	}

	s.notifyCancelled(ctx, result)

	s.logger.Info("delivery cancelled",
		logx.String("event", "delivery_cancelled"),
		logx.Int64("delivery_id", in.DeliveryID),
		logx.String("actor", string(in.Actor)),
		logx.String("from_status", string(fromStatus)),
		logx.Float64("fee", result.Fee),
	)
	return result, nil
}

func (s *Service) notifyCancelled(ctx context.Context, r domain.CancelResult) {
	ev := notify.Event{
		Kind: notify.KindDeliveryCancel,
		Payload: map[string]string{
			"delivery_id": strconv.FormatInt(r.Delivery.ID, 10),
			"fee":         strconv.FormatFloat(r.Fee, 'f', 2, 64),
		},
	}
	if r.RefundStatus != "" {
		ev.Payload["refund_status"] = string(r.RefundStatus)
	}
	if err := s.notifier.NotifyCustomer(ctx, r.Delivery.CustomerID, ev); err != nil {
		s.logger.Warn("cancellation notification failed",
			logx.Int64("delivery_id", r.Delivery.ID),
			logx.Any("err", err),
		)
	}
}

// refund pushes the refund through the gateway after the cancellation has
// committed. On failure the payment stays refund_pending.
func (s *Service) refund(ctx context.Context, deliveryID int64, paymentID string, amount float64) domain.PaymentStatus {
	if err := s.payments.Refund(ctx, paymentID, amount); err != nil {
		s.refundsPending.Inc()
		s.logger.Error("refund deferred",
			logx.String("event", "refund_deferred"),
			logx.Int64("delivery_id", deliveryID),
			logx.Any("err", err),
		)
		return domain.PaymentRefundPending
	}
	if err := s.store.SetRefundOutcome(ctx, deliveryID, domain.PaymentRefunded); err != nil {
		// The money moved; the status catches up on reconciliation.
		s.logger.Error("mark refunded failed",
			logx.Int64("delivery_id", deliveryID),
			logx.Any("err", err),
		)
	}
	return domain.PaymentRefunded
}

func resultFromRecord(d *domain.DeliveryRequest) domain.CancelResult {
	r := domain.CancelResult{Delivery: d}
	if d.Cancellation != nil {
		r.Fee = d.Cancellation.Fee
		r.RefundStatus = d.Cancellation.RefundStatus
		if d.Cancellation.RefundStatus == domain.PaymentRefunded ||
			d.Cancellation.RefundStatus == domain.PaymentRefundPending {
			r.RefundAmount = roundMoney(d.Fare.Total - d.Cancellation.Fee)
		}
	}
	return r
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
