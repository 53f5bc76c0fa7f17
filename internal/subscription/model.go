package subscription

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-langganan/internal/db"
	dbgen "github.com/noah-isme/backend-langganan/internal/db/gen"
	"github.com/noah-isme/backend-langganan/internal/payment"
)

// Target types a checkout can buy.
const (
	TargetPlan    = "plan"
	TargetBundle  = "bundle"
	TargetBuilder = "builder"
)

// LineItem is the share of a charge attributed to one product.
type LineItem struct {
	ProductID string          `json:"productId"`
	PlanID    string          `json:"planId,omitempty"`
	Name      string          `json:"name,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
}

// Subscription is the API view of a subscription row.
type Subscription struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	TargetType        string          `json:"targetType"`
	ProductID         string          `json:"productId,omitempty"`
	PlanID            string          `json:"planId,omitempty"`
	BundleID          string          `json:"bundleId,omitempty"`
	ProductIDs        []string        `json:"productIds"`
	BillingCycle      Cycle           `json:"billingCycle"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Status            Status          `json:"status"`
	Provider          string          `json:"provider"`
	ProviderOrderID   string          `json:"providerOrderId"`
	ProviderPaymentID string          `json:"providerPaymentId,omitempty"`
	CurrentPeriodEnd  *time.Time      `json:"currentPeriodEnd,omitempty"`
	CancelledAt       *time.Time      `json:"cancelledAt,omitempty"`
	LineItems         []LineItem      `json:"lineItems"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// BillingRecord is one settled or failed charge.
type BillingRecord struct {
	ID                string          `json:"id"`
	SubscriptionID    string          `json:"subscriptionId"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Status            string          `json:"status"`
	Provider          string          `json:"provider"`
	ProviderPaymentID string          `json:"providerPaymentId,omitempty"`
	LineItems         []LineItem      `json:"lineItems"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// CheckoutResult is returned by Checkout: the pending subscription and the
// gateway order the client pays against.
type CheckoutResult struct {
	Subscription Subscription  `json:"subscription"`
	Order        payment.Order `json:"order"`
}

func toSubscription(row dbgen.Subscription) Subscription {
	out := Subscription{
		ID:                db.UUIDString(row.ID),
		UserID:            row.UserID,
		TargetType:        row.TargetType,
		PlanID:            row.PlanID,
		ProductIDs:        make([]string, 0, len(row.ProductIds)),
		BillingCycle:      Cycle(row.BillingCycle),
		Currency:          row.Currency,
		Status:            Status(row.Status),
		Provider:          row.Provider,
		ProviderOrderID:   row.ProviderOrderID,
		ProviderPaymentID: row.ProviderPaymentID,
		LineItems:         decodeLines(row.LineItems),
		CreatedAt:         db.Time(row.CreatedAt),
	}
	if row.ProductID.Valid {
		out.ProductID = db.UUIDString(row.ProductID)
	}
	if row.BundleID.Valid {
		out.BundleID = db.UUIDString(row.BundleID)
	}
	for _, id := range row.ProductIds {
		out.ProductIDs = append(out.ProductIDs, db.UUIDString(id))
	}
	if amount, ok := db.Decimal(row.Amount); ok {
		out.Amount = amount
	}
	if row.CurrentPeriodEnd.Valid {
		t := row.CurrentPeriodEnd.Time
		out.CurrentPeriodEnd = &t
	}
	if row.CancelledAt.Valid {
		t := row.CancelledAt.Time
		out.CancelledAt = &t
	}
	return out
}

func toBillingRecord(row dbgen.BillingRecord) BillingRecord {
	out := BillingRecord{
		ID:                db.UUIDString(row.ID),
		SubscriptionID:    db.UUIDString(row.SubscriptionID),
		Currency:          row.Currency,
		Status:            row.Status,
		Provider:          row.Provider,
		ProviderPaymentID: row.ProviderPaymentID,
		LineItems:         decodeLines(row.LineItems),
		CreatedAt:         db.Time(row.CreatedAt),
	}
	if amount, ok := db.Decimal(row.Amount); ok {
		out.Amount = amount
	}
	return out
}

func decodeLines(raw []byte) []LineItem {
	lines := []LineItem{}
	if len(raw) == 0 {
		return lines
	}
	if err := json.Unmarshal(raw, &lines); err != nil {
		return []LineItem{}
	}
	return lines
}
