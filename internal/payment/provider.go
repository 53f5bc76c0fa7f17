package payment

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidSignature is returned when a payment confirmation or webhook
	// signature does not match the configured secret.
	ErrInvalidSignature = errors.New("payment: invalid signature")
	// ErrUnknownProvider is returned when no provider is registered under a name.
	ErrUnknownProvider = errors.New("payment: unknown provider")
)

// OrderRequest describes a gateway order for a subscription checkout.
type OrderRequest struct {
	Receipt  string
	Amount   decimal.Decimal
	Currency string
	Notes    map[string]string
}

// Order is the gateway order the client completes payment against.
type Order struct {
	Provider  string    `json:"provider"`
	ID        string    `json:"orderId"`
	KeyID     string    `json:"keyId,omitempty"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Confirmation is the client-side payment result handed back after checkout.
type Confirmation struct {
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"paymentId" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// WebhookStatus is the normalised outcome carried by a provider callback.
type WebhookStatus string

const (
	WebhookPaid    WebhookStatus = "PAID"
	WebhookFailed  WebhookStatus = "FAILED"
	WebhookIgnored WebhookStatus = "IGNORED"
)

// WebhookResult contains the data extracted from a verified webhook.
type WebhookResult struct {
	Event     string
	OrderID   string
	PaymentID string
	Status    WebhookStatus
	Reason    string
	Payload   []byte
}

// Provider abstracts the operations required from an upstream payment gateway.
type Provider interface {
	Name() string
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	VerifyPayment(c Confirmation) error
	VerifyWebhook(r *http.Request, body []byte) (WebhookResult, error)
}
