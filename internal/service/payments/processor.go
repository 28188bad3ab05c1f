package payments

import (
	"context"
	"strconv"

	"parcel-dispatch/internal/domain"
	"parcel-dispatch/internal/logx"
	"parcel-dispatch/internal/notify"
)

// Processor applies payment settlement events to deliveries. Events for
// unknown deliveries are dropped, not retried: the provider may settle
// payments we never stored, e.g. after a cancellation race.
type Processor struct {
	store    settlementStore
	notifier notify.Dispatcher
	factory  *actionFactory
	logger   logx.Logger
}

// NewProcessor creates a new payments.Processor.
func NewProcessor(store settlementStore, notifier notify.Dispatcher, logger logx.Logger) *Processor {
	p := &Processor{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
	p.factory = newActionFactory(p.onPaid, p.onFailed, p.onRefunded)
	return p
}

// Handle processes a single settlement Event.
func (p *Processor) Handle(ctx context.Context, e Event) error {
	if p.factory == nil {
		return nil
	}
	fn, ok := p.factory.get(e.Status)
	if !ok {
		p.logger.Debug("settlement status ignored",
			logx.Int64("delivery_id", e.DeliveryID),
			logx.String("status", e.Status),
		)
		return nil
	}
	return fn(ctx, e)
}

func (p *Processor) onPaid(ctx context.Context, e Event) error {
	d, err := p.store.GetDelivery(ctx, e.DeliveryID)
	if err != nil {
		return err
	}
	if d == nil {
		p.logger.Warn("settlement for unknown delivery",
			logx.Int64("delivery_id", e.DeliveryID),
			logx.String("payment_id", e.PaymentID),
		)
		return nil
	}

	ok, err := p.store.RecordSettlement(ctx, e.DeliveryID, e.PaymentID, domain.PaymentPaid)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	p.logger.Info("payment settled",
		logx.String("event", "payment_settled"),
		logx.Int64("delivery_id", e.DeliveryID),
		logx.String("payment_id", e.PaymentID),
	)

	// The pickup gate opens on paid; tell the driver right away.
	if d.DriverID != nil {
		ev := notify.Event{
			Kind: notify.KindPaymentSettled,
			Payload: map[string]string{
				"delivery_id": strconv.FormatInt(e.DeliveryID, 10),
			},
		}
		if err := p.notifier.NotifyDriver(ctx, *d.DriverID, ev); err != nil {
			p.logger.Warn("settlement notification failed",
				logx.Int64("driver_id", *d.DriverID),
				logx.Any("err", err),
			)
		}
	}
	return nil
}

func (p *Processor) onFailed(ctx context.Context, e Event) error {
	_, err := p.store.RecordSettlement(ctx, e.DeliveryID, e.PaymentID, domain.PaymentFailed)
	return err
}

func (p *Processor) onRefunded(ctx context.Context, e Event) error {
	_, err := p.store.RecordSettlement(ctx, e.DeliveryID, e.PaymentID, domain.PaymentRefunded)
	return err
}
