package lifecycle

import (
	"context"
	"strconv"
	"time"

	"parcel-dispatch/internal/apperr"
	"parcel-dispatch/internal/domain"
	"parcel-dispatch/internal/logx"
	"parcel-dispatch/internal/notify"
	"parcel-dispatch/internal/ports/deliverytx"
)

// Service moves deliveries through their lifecycle. All writes happen in a
// single transaction guarded by the delivery's current status, so a stale
// caller loses the race instead of overwriting newer state.
type Service struct {
	repo             txRunner
	notifier         notify.Dispatcher
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewService - creates a new lifecycle Service.
func NewService(repo txRunner, notifier notify.Dispatcher, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		repo:             repo,
		notifier:         notifier,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// AdvanceInput describes one requested status change.
type AdvanceInput struct {
	DeliveryID int64
	To         domain.DeliveryStatus
	// DriverID, when set, must match the driver bound to the delivery.
	DriverID *int64
	// Location, when set, is appended to the tracking history.
	Location *domain.Location
}

// Advance moves a delivery to the requested status. Cash deliveries may be
// picked up immediately; every other payment method must be settled first.
func (s *Service) Advance(ctx context.Context, in AdvanceInput) (*domain.DeliveryRequest, error) {
	if in.DeliveryID <= 0 || !in.To.Valid() {
		return nil, apperr.ErrValidation
	}
	if in.To == domain.StatusCancelled {
		// Cancellation carries fees and refunds and goes through its own flow.
		return nil, apperr.ErrValidation
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out *domain.DeliveryRequest
	err := s.repo.WithTx(ctx, func(tx deliverytx.Repository) error {
		d, err := tx.GetDeliveryForUpdate(ctx, in.DeliveryID)
		if err != nil {
			return err
		}
		if d == nil {
			return apperr.ErrNotFound
		}
		if in.DriverID != nil && (d.DriverID == nil || *d.DriverID != *in.DriverID) {
			return apperr.ErrConflict
		}
		if !d.Status.CanTransition(in.To) {
			return apperr.NewTransition(string(d.Status), string(in.To))
		}
		if in.To == domain.StatusPickedUp &&
			d.Payment.Method != domain.PayCash &&
			d.Payment.Status != domain.PaymentPaid {
			return apperr.ErrPaymentRequired
		}

		now := s.now()
		ok, err := tx.UpdateStatus(ctx, d.ID, d.Status, in.To, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrConflict
		}

		if in.To.Terminal() && d.DriverID != nil {
			if _, err := tx.ReleaseDriver(ctx, *d.DriverID, d.ID); err != nil {
				return err
			}
			if in.To == domain.StatusDelivered {
				if err := tx.IncrementDriverCompleted(ctx, *d.DriverID); err != nil {
					return err
				}
			}
		}

		if in.Location != nil {
			p := domain.TrackingPoint{
				DeliveryID: d.ID,
				Lat:        in.Location.Lat,
				Lng:        in.Location.Lng,
				RecordedAt: now,
			}
			if err := tx.InsertTrackingPoint(ctx, p); err != nil {
				return err
			}
		}

		d.Status = in.To
		d.StampEntered(in.To, now)
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyStatusChanged(ctx, out)

	s.logger.Info("delivery status advanced",
		logx.String("event", "status_advanced"),
		logx.Int64("delivery_id", out.ID),
		logx.String("status", string(out.Status)),
	)
	return out, nil
}

func (s *Service) notifyStatusChanged(ctx context.Context, d *domain.DeliveryRequest) {
	ev := notify.Event{
		Kind: notify.KindStatusChanged,
		Payload: map[string]string{
			"delivery_id":  strconv.FormatInt(d.ID, 10),
			"reference_id": d.ReferenceID,
			"status":       string(d.Status),
		},
	}
	if err := s.notifier.NotifyCustomer(ctx, d.CustomerID, ev); err != nil {
		s.logger.Warn("status notification failed",
			logx.Int64("delivery_id", d.ID),
			logx.Any("err", err),
		)
	}
}
