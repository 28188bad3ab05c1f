package payment

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"parcel-dispatch/internal/logx"
)

type gateway interface {
	Refund(ctx context.Context, paymentID string, amount float64) error
	GetStatus(ctx context.Context, paymentID string) (*Status, error)
}

type counter interface {
	Inc()
}

// RetryConfig tunes the retry behaviour of RetryingGateway.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryingGateway retries transient provider failures with exponential
// backoff. Client errors other than 429 are never retried.
type RetryingGateway struct {
	next    gateway
	logger  logx.Logger
	retries counter
	cfg     RetryConfig
	sleep   func(time.Duration)
}

// NewRetryingGateway wraps next with retries; returns nil when next is nil.
func NewRetryingGateway(next gateway, logger logx.Logger, retries counter, cfg RetryConfig) *RetryingGateway {
	if next == nil {
		return nil
	}
	return &RetryingGateway{next: next, logger: logger, retries: retries, cfg: cfg, sleep: time.Sleep}
}

// Refund retries the refund call on transient failures.
func (g *RetryingGateway) Refund(ctx context.Context, paymentID string, amount float64) error {
	return g.do(ctx, "Refund", func() error {
		return g.next.Refund(ctx, paymentID, amount)
	})
}

// GetStatus retries the status call on transient failures.
func (g *RetryingGateway) GetStatus(ctx context.Context, paymentID string) (*Status, error) {
	var st *Status
	err := g.do(ctx, "GetStatus", func() error {
		var err error
		st, err = g.next.GetStatus(ctx, paymentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (g *RetryingGateway) do(ctx context.Context, method string, call func() error) error {
	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		err := call()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == g.cfg.MaxAttempts || !isRetryable(err) {
			break
		}

		delay := backoff(g.cfg.BaseDelay, g.cfg.MaxDelay, attempt)
		if g.retries != nil {
			g.retries.Inc()
		}
		g.logger.Warn("payment gateway retry",
			logx.String("method", method),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Any("err", err),
		)
		if !sleepWithContext(ctx, g.sleep, delay) {
			break
		}
	}
	return lastErr
}

// isRetryable treats transport errors, 429 and 5xx as transient.
func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if d > max {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, sleep func(time.Duration), d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
