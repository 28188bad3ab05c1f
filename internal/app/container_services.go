package app

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"parcel-dispatch/internal/config"
	"parcel-dispatch/internal/gateway/geocode"
	paymentgw "parcel-dispatch/internal/gateway/payment"
	"parcel-dispatch/internal/logx"
	"parcel-dispatch/internal/notify"
	"parcel-dispatch/internal/presence"
	"parcel-dispatch/internal/repository"
	"parcel-dispatch/internal/service/cancel"
	"parcel-dispatch/internal/service/delivery"
	"parcel-dispatch/internal/service/dispatch"
	"parcel-dispatch/internal/service/driver"
	"parcel-dispatch/internal/service/lifecycle"
	"parcel-dispatch/internal/service/match"
)

func registerDomainServices(container *dig.Container) error {
	return provideAll(container,
		repository.NewDeliveryRepo,
		repository.NewDriverRepo,
		func() time.Duration { return 3 * time.Second },
		delivery.NewReferenceFactory,
		newMatcher,
		newBroadcaster,
		newDeliveryService,
		newDriverService,
		newLifecycleService,
		newCancelService,
	)
}

func newMatcher(drivers *repository.DriverRepo, idx *presence.Index, logger logx.Logger) *match.Matcher {
	if idx == nil {
		return match.NewMatcher(drivers, nil, logger)
	}
	return match.NewMatcher(drivers, idx, logger)
}

type broadcasterIn struct {
	dig.In

	Notifier  notify.Dispatcher
	Cfg       *config.Config
	Offers    prometheus.Counter `name:"dispatch_offers_total"`
	Exhausted prometheus.Counter `name:"broadcasts_exhausted_total"`
	Logger    logx.Logger
}

func newBroadcaster(in broadcasterIn) *dispatch.Broadcaster {
	return dispatch.NewBroadcaster(in.Notifier, in.Cfg.Dispatch.OfferTimeout, in.Offers, in.Exhausted, in.Logger)
}

type deliveryServiceIn struct {
	dig.In

	Repo       *repository.DeliveryRepo
	Drivers    *repository.DriverRepo
	Matcher    *match.Matcher
	Geocoder   *geocode.Gateway
	Broadcasts *dispatch.Broadcaster
	Notifier   notify.Dispatcher
	Refs       delivery.ReferenceFactory
	Conflicts  prometheus.Counter `name:"assignment_conflicts_total"`
	Cfg        *config.Config
	Timeout    time.Duration
	Logger     logx.Logger
}

func newDeliveryService(in deliveryServiceIn) *delivery.Service {
	opts := delivery.Options{
		SearchRadiusKm: in.Cfg.Dispatch.SearchRadiusKm,
		MaxCandidates:  in.Cfg.Dispatch.MaxCandidates,
		StalledAfter:   in.Cfg.Dispatch.RebroadcastEvery,
		Timeout:        in.Timeout,
	}
	if in.Geocoder == nil {
		return delivery.NewService(in.Repo, in.Drivers, in.Matcher, nil, in.Broadcasts,
			in.Notifier, in.Refs, in.Conflicts, opts, in.Logger)
	}
	return delivery.NewService(in.Repo, in.Drivers, in.Matcher, in.Geocoder, in.Broadcasts,
		in.Notifier, in.Refs, in.Conflicts, opts, in.Logger)
}

func newDriverService(repo *repository.DriverRepo, idx *presence.Index, timeout time.Duration, logger logx.Logger) *driver.Service {
	if idx == nil {
		return driver.NewService(repo, nil, timeout, logger)
	}
	return driver.NewService(repo, idx, timeout, logger)
}

func newLifecycleService(repo *repository.DeliveryRepo, notifier notify.Dispatcher, timeout time.Duration, logger logx.Logger) *lifecycle.Service {
	return lifecycle.NewService(repo, notifier, timeout, logger)
}

type cancelServiceIn struct {
	dig.In

	Repo           *repository.DeliveryRepo
	Gateway        *paymentgw.RetryingGateway
	Broadcasts     *dispatch.Broadcaster
	Notifier       notify.Dispatcher
	RefundsPending prometheus.Counter `name:"refunds_pending_total"`
	Timeout        time.Duration
	Logger         logx.Logger
}

func newCancelService(in cancelServiceIn) *cancel.Service {
	if in.Gateway == nil {
		return cancel.NewService(in.Repo, in.Repo, disabledRefunder{}, in.Broadcasts,
			in.Notifier, in.RefundsPending, in.Timeout, in.Logger)
	}
	return cancel.NewService(in.Repo, in.Repo, in.Gateway, in.Broadcasts,
		in.Notifier, in.RefundsPending, in.Timeout, in.Logger)
}

// disabledRefunder fails every refund so the cancellation flow parks it as
// refund_pending when no payment gateway is configured.
type disabledRefunder struct{}

func (disabledRefunder) Refund(context.Context, string, float64) error {
	return errors.New("payment gateway not configured")
}
