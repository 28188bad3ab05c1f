package app

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"parcel-dispatch/internal/metrics"
)

type metricsOut struct {
	dig.Out

	RateLimitExceededTotal   prometheus.Counter `name:"rate_limit_exceeded_total"`
	GatewayRetriesTotal      prometheus.Counter `name:"gateway_retries_total"`
	DispatchOffersTotal      prometheus.Counter `name:"dispatch_offers_total"`
	AssignmentConflictsTotal prometheus.Counter `name:"assignment_conflicts_total"`
	BroadcastsExhaustedTotal prometheus.Counter `name:"broadcasts_exhausted_total"`
	RefundsPendingTotal      prometheus.Counter `name:"refunds_pending_total"`
}

func provideMetrics() (metricsOut, error) {
	var (
		out metricsOut
		err error
	)

	if out.RateLimitExceededTotal, err = registerCounter(metrics.NewRateLimitExceededTotal()); err != nil {
		return metricsOut{}, fmt.Errorf("register rate_limit_exceeded_total: %w", err)
	}
	if out.GatewayRetriesTotal, err = registerCounter(metrics.NewGatewayRetriesTotal()); err != nil {
		return metricsOut{}, fmt.Errorf("register gateway_retries_total: %w", err)
	}
	if out.DispatchOffersTotal, err = registerCounter(metrics.NewDispatchOffersTotal()); err != nil {
		return metricsOut{}, fmt.Errorf("register dispatch_offers_total: %w", err)
	}
	if out.AssignmentConflictsTotal, err = registerCounter(metrics.NewAssignmentConflictsTotal()); err != nil {
		return metricsOut{}, fmt.Errorf("register assignment_conflicts_total: %w", err)
	}
	if out.BroadcastsExhaustedTotal, err = registerCounter(metrics.NewBroadcastsExhaustedTotal()); err != nil {
		return metricsOut{}, fmt.Errorf("register broadcasts_exhausted_total: %w", err)
	}
	if out.RefundsPendingTotal, err = registerCounter(metrics.NewRefundsPendingTotal()); err != nil {
		return metricsOut{}, fmt.Errorf("register refunds_pending_total: %w", err)
	}

	return out, nil
}

// registerCounter registers the counter, returning the already registered
// instance when a previous build of the container got there first.
func registerCounter(c prometheus.Counter) (prometheus.Counter, error) {
	if err := prometheus.DefaultRegisterer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}
