package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"parcel-dispatch/internal/config"
	"parcel-dispatch/internal/gateway/geocode"
	paymentgw "parcel-dispatch/internal/gateway/payment"
	"parcel-dispatch/internal/logx"
	"parcel-dispatch/internal/notify"
	"parcel-dispatch/internal/presence"
)

// notifyCloser shuts down the notification publisher on exit.
type notifyCloser func() error

func registerInfra(container *dig.Container) error {
	return provideAll(container,
		provideMetrics,
		newRedisClient,
		newPresenceIndex,
		newNotifier,
		newPaymentGateway,
		newGeocoder,
	)
}

// newRedisClient returns nil when no Redis address is configured; the
// presence index is optional.
func newRedisClient(cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
}

func newPresenceIndex(rdb *redis.Client) *presence.Index {
	if rdb == nil {
		return nil
	}
	return presence.NewIndex(rdb)
}

// newNotifier builds the Kafka push dispatcher, or a no-op one when Kafka
// is not configured.
func newNotifier(cfg *config.Config, logger logx.Logger) (notify.Dispatcher, notifyCloser, error) {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.NotificationTopic == "" {
		return notify.NewNopDispatcher(), func() error { return nil }, nil
	}
	kd, err := notify.NewKafkaDispatcher(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic, logger)
	if err != nil {
		return nil, nil, err
	}
	return kd, kd.Close, nil
}

type paymentGatewayIn struct {
	dig.In

	Cfg     *config.Config
	Logger  logx.Logger
	Retries prometheus.Counter `name:"gateway_retries_total"`
}

// newPaymentGateway returns nil when no payment gateway is configured;
// refunds are then parked as refund_pending.
func newPaymentGateway(in paymentGatewayIn) *paymentgw.RetryingGateway {
	p := in.Cfg.Payment
	if p.BaseURL == "" {
		return nil
	}
	base := paymentgw.NewHTTPGateway(p.BaseURL, &http.Client{Timeout: p.Timeout})
	return paymentgw.NewRetryingGateway(base, in.Logger, in.Retries, paymentgw.RetryConfig{
		MaxAttempts: p.MaxAttempts,
		BaseDelay:   p.BaseDelay,
		MaxDelay:    p.MaxDelay,
	})
}

// newGeocoder returns nil when no API key is configured; addresses then
// fall back to raw coordinates.
func newGeocoder(cfg *config.Config, logger logx.Logger) (*geocode.Gateway, error) {
	if cfg.Geocode.APIKey == "" {
		return nil, nil
	}
	return geocode.NewGateway(cfg.Geocode.APIKey, logger)
}
