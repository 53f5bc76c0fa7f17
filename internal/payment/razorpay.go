package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/backend-langganan/internal/resilience"
)

const maxGatewayBody = 1 << 20

// Razorpay talks to the Razorpay orders API.
type Razorpay struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	OrderTTL      time.Duration
	Client        resilience.HTTPClient
	Now           func() time.Time
}

// RazorpayConfig configures NewRazorpay.
type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	OrderTTL      time.Duration
	HTTPClient    *http.Client
	MaxAttempts   int
	Timeout       time.Duration
}

// NewRazorpay builds a Razorpay provider with a resilient HTTP client.
func NewRazorpay(cfg RazorpayConfig) (*Razorpay, error) {
	if strings.TrimSpace(cfg.KeyID) == "" || strings.TrimSpace(cfg.KeySecret) == "" {
		return nil, errors.New("payment: razorpay key id and secret are required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.razorpay.com"
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 2
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Razorpay{
		KeyID:         cfg.KeyID,
		KeySecret:     cfg.KeySecret,
		WebhookSecret: cfg.WebhookSecret,
		BaseURL:       base,
		OrderTTL:      cfg.OrderTTL,
		Client:        resilience.NewHTTPClient(cfg.HTTPClient, "razorpay", attempts, timeout),
		Now:           time.Now,
	}, nil
}

// Name implements Provider.
func (r *Razorpay) Name() string { return "razorpay" }

type razorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder implements Provider.
func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	amount, err := ToMinorUnits(req.Amount, currency)
	if err != nil {
		return Order{}, err
	}
	body, err := json.Marshal(map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  req.Receipt,
		"notes":    req.Notes,
	})
	if err != nil {
		return Order{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return Order{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(r.KeyID, r.KeySecret)

	resp, err := r.Client.Do(ctx, httpReq)
	if err != nil {
		return Order{}, fmt.Errorf("razorpay create order: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayBody))
	if err != nil {
		return Order{}, fmt.Errorf("razorpay read order: %w", err)
	}
	if resp.StatusCode >= 300 {
		var apiErr razorpayError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Description != "" {
			return Order{}, fmt.Errorf("razorpay create order: %s: %s", apiErr.Error.Code, apiErr.Error.Description)
		}
		return Order{}, fmt.Errorf("razorpay create order: status %d", resp.StatusCode)
	}
	var out razorpayOrder
	if err := json.Unmarshal(raw, &out); err != nil {
		return Order{}, fmt.Errorf("razorpay decode order: %w", err)
	}
	if out.ID == "" {
		return Order{}, errors.New("razorpay create order: missing order id")
	}
	ttl := r.OrderTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return Order{
		Provider:  r.Name(),
		ID:        out.ID,
		KeyID:     r.KeyID,
		Amount:    out.Amount,
		Currency:  out.Currency,
		Status:    out.Status,
		ExpiresAt: r.now().Add(ttl),
	}, nil
}

// VerifyPayment checks the checkout signature HMAC(order_id|payment_id).
func (r *Razorpay) VerifyPayment(c Confirmation) error {
	if !validSignature(r.KeySecret, []byte(c.OrderID+"|"+c.PaymentID), c.Signature) {
		return ErrInvalidSignature
	}
	return nil
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// VerifyWebhook validates X-Razorpay-Signature and extracts the payment outcome.
func (r *Razorpay) VerifyWebhook(req *http.Request, body []byte) (WebhookResult, error) {
	if !validSignature(r.WebhookSecret, body, req.Header.Get("X-Razorpay-Signature")) {
		return WebhookResult{}, ErrInvalidSignature
	}
	var payload razorpayWebhook
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookResult{}, fmt.Errorf("razorpay webhook: %w", err)
	}
	entity := payload.Payload.Payment.Entity
	res := WebhookResult{
		Event:     payload.Event,
		OrderID:   entity.OrderID,
		PaymentID: entity.ID,
		Reason:    entity.ErrorDescription,
		Payload:   body,
	}
	if res.OrderID == "" {
		res.OrderID = payload.Payload.Order.Entity.ID
	}
	switch payload.Event {
	case "payment.captured", "order.paid":
		res.Status = WebhookPaid
	case "payment.failed":
		res.Status = WebhookFailed
	default:
		res.Status = WebhookIgnored
	}
	return res, nil
}

func (r *Razorpay) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
