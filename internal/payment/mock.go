package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

var mockNamespace = uuid.MustParse("0f6f5d62-4c1e-4a3e-9b0e-7a52b1f3c2d4")

// Mock is a deterministic in-process gateway for development and tests.
// Orders are derived from the receipt; signatures use the same scheme as
// Razorpay with Secret.
type Mock struct {
	Secret   string
	OrderTTL time.Duration
	Now      func() time.Time
}

// Name implements Provider.
func (m Mock) Name() string { return "mock" }

// CreateOrder implements Provider.
func (m Mock) CreateOrder(_ context.Context, req OrderRequest) (Order, error) {
	if strings.TrimSpace(req.Receipt) == "" {
		return Order{}, fmt.Errorf("payment: receipt is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	amount, err := ToMinorUnits(req.Amount, currency)
	if err != nil {
		return Order{}, err
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	ttl := m.OrderTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	id := uuid.NewSHA1(mockNamespace, []byte(req.Receipt))
	return Order{
		Provider:  m.Name(),
		ID:        "order_" + strings.ReplaceAll(id.String(), "-", "")[:14],
		Amount:    amount,
		Currency:  currency,
		Status:    "created",
		ExpiresAt: now().Add(ttl),
	}, nil
}

// VerifyPayment implements Provider.
func (m Mock) VerifyPayment(c Confirmation) error {
	if !validSignature(m.Secret, []byte(c.OrderID+"|"+c.PaymentID), c.Signature) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyWebhook accepts {"orderId","paymentId","status","reason"} signed in X-Mock-Signature.
func (m Mock) VerifyWebhook(r *http.Request, body []byte) (WebhookResult, error) {
	if !validSignature(m.Secret, body, r.Header.Get("X-Mock-Signature")) {
		return WebhookResult{}, ErrInvalidSignature
	}
	var payload struct {
		OrderID   string `json:"orderId"`
		PaymentID string `json:"paymentId"`
		Status    string `json:"status"`
		Reason    string `json:"reason"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookResult{}, fmt.Errorf("mock webhook: %w", err)
	}
	res := WebhookResult{
		Event:     "mock." + strings.ToLower(payload.Status),
		OrderID:   payload.OrderID,
		PaymentID: payload.PaymentID,
		Reason:    payload.Reason,
		Payload:   body,
		Status:    WebhookIgnored,
	}
	switch strings.ToUpper(strings.TrimSpace(payload.Status)) {
	case "PAID", "CAPTURED":
		res.Status = WebhookPaid
	case "FAILED":
		res.Status = WebhookFailed
	}
	return res, nil
}
