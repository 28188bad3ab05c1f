package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// DB stores Postgres connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN builds a pgx connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Pass, d.Host, d.Port, d.Name)
}

// Dispatch stores broadcast cascade settings.
type Dispatch struct {
	OfferTimeout     time.Duration
	SearchRadiusKm   float64
	MaxCandidates    int
	RebroadcastEvery time.Duration
}

// Kafka stores broker settings for the payment event consumer and the
// notification publisher. Empty brokers disable the respective component.
type Kafka struct {
	Brokers           []string
	PaymentTopic      string
	PaymentGroupID    string
	NotificationTopic string
}

// Redis stores settings for the driver presence index. Empty Addr disables it.
type Redis struct {
	Addr string
}

// Payment stores payment gateway client settings.
type Payment struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Geocode stores reverse-geocoding settings. Empty APIKey disables it.
type Geocode struct {
	APIKey string
}

// PprofConfig stores the debug pprof server settings.
type PprofConfig struct {
	Enabled bool
	Addr    string
	User    string
	Pass    string
}

// RateLimit stores HTTP rate limiting settings.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Config stores all service settings.
type Config struct {
	Port      int
	DB        DB
	Dispatch  Dispatch
	Kafka     Kafka
	Redis     Redis
	Payment   Payment
	Geocode   Geocode
	Pprof     PprofConfig
	RateLimit RateLimit
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port:      DefaultPort(),
		DB:        DefaultDB(),
		Dispatch:  DefaultDispatch(),
		Kafka:     DefaultKafka(),
		Redis:     DefaultRedis(),
		Payment:   DefaultPayment(),
		Geocode:   DefaultGeocode(),
		Pprof:     DefaultPprof(),
		RateLimit: DefaultRateLimit(),
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	// Load may run more than once in a process (tests rebuild the container),
	// and pflag panics on duplicate registration. Unknown flags are tolerated
	// so the test binary's own flags pass through.
	if pflag.CommandLine.Lookup("port") == nil {
		pflag.CommandLine.ParseErrorsWhitelist.UnknownFlags = true
		pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
		if err := pflag.CommandLine.Parse(os.Args[1:]); err != nil {
			return nil, fmt.Errorf("parse flags: %w", err)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse PORT: %w", err)
		}
		cfg.Port = p
	}

	envStr(&cfg.DB.Host, "POSTGRES_HOST")
	envStr(&cfg.DB.Port, "POSTGRES_PORT")
	envStr(&cfg.DB.User, "POSTGRES_USER")
	envStr(&cfg.DB.Pass, "POSTGRES_PASSWORD")
	envStr(&cfg.DB.Name, "POSTGRES_DB")

	if err := envDuration(&cfg.Dispatch.OfferTimeout, "DISPATCH_OFFER_TIMEOUT"); err != nil {
		return err
	}
	if err := envFloat(&cfg.Dispatch.SearchRadiusKm, "DISPATCH_SEARCH_RADIUS_KM"); err != nil {
		return err
	}
	if err := envInt(&cfg.Dispatch.MaxCandidates, "DISPATCH_MAX_CANDIDATES"); err != nil {
		return err
	}
	if err := envDuration(&cfg.Dispatch.RebroadcastEvery, "DISPATCH_REBROADCAST_INTERVAL"); err != nil {
		return err
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitCSV(v)
	}
	envStr(&cfg.Kafka.PaymentTopic, "KAFKA_PAYMENT_TOPIC")
	envStr(&cfg.Kafka.PaymentGroupID, "KAFKA_PAYMENT_GROUP_ID")
	envStr(&cfg.Kafka.NotificationTopic, "KAFKA_NOTIFICATION_TOPIC")

	envStr(&cfg.Redis.Addr, "REDIS_ADDR")

	envStr(&cfg.Payment.BaseURL, "PAYMENT_BASE_URL")
	if err := envDuration(&cfg.Payment.Timeout, "PAYMENT_TIMEOUT"); err != nil {
		return err
	}
	if err := envInt(&cfg.Payment.MaxAttempts, "PAYMENT_MAX_ATTEMPTS"); err != nil {
		return err
	}

	envStr(&cfg.Geocode.APIKey, "GEOCODE_API_KEY")

	if v := os.Getenv("PPROF_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse PPROF_ENABLED: %w", err)
		}
		cfg.Pprof.Enabled = b
	}
	envStr(&cfg.Pprof.Addr, "PPROF_ADDR")
	envStr(&cfg.Pprof.User, "PPROF_USER")
	envStr(&cfg.Pprof.Pass, "PPROF_PASS")

	if v := os.Getenv("RATE_LIMIT_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse RATE_LIMIT_ENABLED: %w", err)
		}
		cfg.RateLimit.Enabled = b
	}
	if err := envFloat(&cfg.RateLimit.Rate, "RATE_LIMIT_RATE"); err != nil {
		return err
	}
	if err := envInt(&cfg.RateLimit.Burst, "RATE_LIMIT_BURST"); err != nil {
		return err
	}

	return nil
}

func validate(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if _, err := strconv.Atoi(cfg.DB.Port); err != nil {
		return fmt.Errorf("invalid postgres port %q: %w", cfg.DB.Port, err)
	}
	if cfg.Dispatch.OfferTimeout <= 0 {
		return fmt.Errorf("invalid dispatch offer timeout: %s", cfg.Dispatch.OfferTimeout)
	}
	if cfg.Dispatch.SearchRadiusKm <= 0 {
		return fmt.Errorf("invalid dispatch search radius: %f", cfg.Dispatch.SearchRadiusKm)
	}
	if cfg.Dispatch.MaxCandidates <= 0 {
		return fmt.Errorf("invalid dispatch max candidates: %d", cfg.Dispatch.MaxCandidates)
	}
	return nil
}

func envStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = f
	return nil
}

func envDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
