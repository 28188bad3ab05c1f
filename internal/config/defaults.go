package config

import "time"

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "myuser",
	Pass: "mypassword",
	Name: "dispatch_db",
}

var defaultDispatch = Dispatch{
	OfferTimeout:     30 * time.Second,
	SearchRadiusKm:   5.0,
	MaxCandidates:    10,
	RebroadcastEvery: time.Minute,
}

var defaultKafka = Kafka{
	PaymentTopic:      "payments.status",
	PaymentGroupID:    "parcel-dispatch-worker",
	NotificationTopic: "notifications.push",
}

var defaultPayment = Payment{
	Timeout:     5 * time.Second,
	MaxAttempts: 4,
	BaseDelay:   150 * time.Millisecond,
	MaxDelay:    2 * time.Second,
}

var defaultPprof = PprofConfig{
	Enabled: false,
	Addr:    "0.0.0.0:6060",
}

var defaultRateLimit = RateLimit{
	Enabled:    false,
	Rate:       50,
	Burst:      100,
	TTL:        10 * time.Minute,
	MaxBuckets: 100_000,
}

// DefaultPort returns the default HTTP port.
func DefaultPort() int { return defaultPort }

// DefaultDB returns the default database settings.
func DefaultDB() DB { return defaultDB }

// DefaultDispatch returns the default dispatch settings.
func DefaultDispatch() Dispatch { return defaultDispatch }

// DefaultKafka returns the default Kafka settings.
func DefaultKafka() Kafka { return defaultKafka }

// DefaultRedis returns the default Redis settings (disabled).
func DefaultRedis() Redis { return Redis{} }

// DefaultPayment returns the default payment gateway settings.
func DefaultPayment() Payment { return defaultPayment }

// DefaultGeocode returns the default geocoding settings (disabled).
func DefaultGeocode() Geocode { return Geocode{} }

// DefaultPprof returns the default pprof settings (disabled).
func DefaultPprof() PprofConfig { return defaultPprof }

// DefaultRateLimit returns the default rate limit settings.
func DefaultRateLimit() RateLimit { return defaultRateLimit }
