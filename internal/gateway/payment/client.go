package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"parcel-dispatch/internal/apperr"
	"parcel-dispatch/internal/domain"
)

// Status is a payment record as reported by the payment provider.
type Status struct {
	PaymentID string               `json:"payment_id"`
	Status    domain.PaymentStatus `json:"status"`
	Amount    float64              `json:"amount"`
}

// statusError is a non-2xx provider response. It keeps the HTTP code so the
// retrying wrapper can tell transient failures from permanent ones.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("payment provider returned %d: %s", e.Code, e.Body)
}

// HTTPGateway talks JSON over HTTP to the payment provider.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGateway creates a payment gateway for the given provider base URL.
func NewHTTPGateway(baseURL string, client *http.Client) *HTTPGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPGateway{baseURL: baseURL, client: client}
}

// Refund asks the provider to return amount to the payer of paymentID.
func (g *HTTPGateway) Refund(ctx context.Context, paymentID string, amount float64) error {
	body, err := json.Marshal(map[string]any{
		"payment_id": paymentID,
		"amount":     amount,
	})
	if err != nil {
		return fmt.Errorf("payment gateway: marshal refund: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/refunds", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("payment gateway: refund request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment gateway: refund: %w: %w", apperr.ErrExternal, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("payment gateway: refund: %w: %w", apperr.ErrExternal, readStatusError(resp))
	}
	return nil
}

// GetStatus fetches the settlement state of a payment.
func (g *HTTPGateway) GetStatus(ctx context.Context, paymentID string) (*Status, error) {
	u := g.baseURL + "/payments/" + url.PathEscape(paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("payment gateway: status request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment gateway: status: %w: %w", apperr.ErrExternal, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("payment gateway: status: %w: %w", apperr.ErrExternal, readStatusError(resp))
	}

	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("payment gateway: decode status: %w", err)
	}
	return &st, nil
}

func readStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &statusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
}
