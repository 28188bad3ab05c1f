package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewGatewayRetriesTotal returns a Prometheus counter for the number of retry attempts performed by gateways
func NewGatewayRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_retries_total",
		Help: "Total number of retry attempts performed by gateways",
	})
}

// NewDispatchOffersTotal returns a Prometheus counter for the number of offers sent to drivers
func NewDispatchOffersTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_offers_total",
		Help: "Total number of delivery offers sent to drivers",
	})
}

// NewAssignmentConflictsTotal returns a Prometheus counter for the number of assignment races lost
func NewAssignmentConflictsTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assignment_conflicts_total",
		Help: "Total number of driver assignments rejected because the delivery or driver was already taken",
	})
}

// NewBroadcastsExhaustedTotal returns a Prometheus counter for broadcasts that ran out of candidates
func NewBroadcastsExhaustedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcasts_exhausted_total",
		Help: "Total number of dispatch broadcasts that exhausted all candidates without an assignment",
	})
}

// NewRefundsPendingTotal returns a Prometheus counter for refunds parked after a failed gateway call
func NewRefundsPendingTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "refunds_pending_total",
		Help: "Total number of cancellations whose refund was deferred after a payment gateway failure",
	})
}
