package app

import (
	"context"
	"time"

	"go.uber.org/dig"

	"parcel-dispatch/internal/config"
	paymentgw "parcel-dispatch/internal/gateway/payment"
	"parcel-dispatch/internal/logx"
	"parcel-dispatch/internal/notify"
	"parcel-dispatch/internal/repository"
	"parcel-dispatch/internal/service/payments"
	"parcel-dispatch/internal/transport/kafka"
)

type paymentsHandler interface {
	Handle(ctx context.Context, e payments.Event) error
}

type paymentStatusGetter interface {
	GetStatus(ctx context.Context, paymentID string) (*paymentgw.Status, error)
}

// makePaymentsKafka wires the settlement processor behind the consumer,
// enriching events that arrive without a status by asking the provider.
func makePaymentsKafka(p paymentsHandler, gw paymentStatusGetter) kafka.HandleFunc {
	return func(ctx context.Context, event payments.Event) error {
		if event.Status != "" || gw == nil {
			return p.Handle(ctx, event)
		}

		gwCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		st, err := gw.GetStatus(gwCtx, event.PaymentID)
		if err != nil {
			return err
		}
		if st == nil {
			return nil
		}

		event.Status = string(st.Status)
		return p.Handle(ctx, event)
	}
}

func registerWorker(container *dig.Container) error {
	return provideAll(container,
		repository.NewDeliveryRepo,
		func(repo *repository.DeliveryRepo, notifier notify.Dispatcher, logger logx.Logger) *payments.Processor {
			return payments.NewProcessor(repo, notifier, logger)
		},
		func(p *payments.Processor, gw *paymentgw.RetryingGateway) kafka.HandleFunc {
			if gw == nil {
				return makePaymentsKafka(p, nil)
			}
			return makePaymentsKafka(p, gw)
		},
		func(logger logx.Logger, cfg *config.Config, h kafka.HandleFunc) (*kafka.Consumer, error) {
			return kafka.NewConsumer(logger, cfg.Kafka.Brokers, cfg.Kafka.PaymentGroupID, cfg.Kafka.PaymentTopic, h)
		},
	)
}
