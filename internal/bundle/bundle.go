package bundle

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-langganan/internal/common"
	"github.com/noah-isme/backend-langganan/internal/pricing"
)

var (
	// ErrNotCustomizable is returned when a selection differs from the full
	// membership of a bundle that does not allow customization.
	ErrNotCustomizable = errors.New("bundle: not customizable")
	// ErrUnknownProduct marks a selected product that is not a bundle member.
	ErrUnknownProduct = errors.New("bundle: product is not a member")
	// ErrMixedCurrency is returned when bundle members are priced in different currencies.
	ErrMixedCurrency = errors.New("bundle: members use different currencies")
)

// Member is a product inside a bundle.
type Member struct {
	ProductID       string          `json:"productId"`
	Slug            string          `json:"slug"`
	Name            string          `json:"name"`
	Required        bool            `json:"required"`
	IndividualPrice decimal.Decimal `json:"individualPrice"`
	BundlePrice     decimal.Decimal `json:"bundlePrice"`
}

// Bundle is a curated bundle with its membership and full-selection metrics.
type Bundle struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	Category       string              `json:"category"`
	Savings        int                 `json:"savings"`
	IsCustomizable bool                `json:"isCustomizable"`
	Constraints    pricing.Constraints `json:"constraints"`
	Currency       string              `json:"currency"`
	Members        []Member            `json:"products"`
	Metrics        pricing.Metrics     `json:"metrics"`
	AnnualPrice    decimal.Decimal     `json:"annualPrice"`
}

// Selection returns every member id in display order.
func (b Bundle) Selection() pricing.Selection {
	ids := make([]string, 0, len(b.Members))
	for _, m := range b.Members {
		ids = append(ids, m.ProductID)
	}
	return pricing.NewSelection(ids...)
}

func (b Bundle) memberships() []pricing.Membership {
	out := make([]pricing.Membership, 0, len(b.Members))
	for _, m := range b.Members {
		out = append(out, pricing.Membership{ProductID: m.ProductID, IndividualPrice: m.IndividualPrice, BundlePrice: m.BundlePrice})
	}
	return out
}

// Line is one product of a quote.
type Line struct {
	ProductID         string          `json:"productId"`
	Name              string          `json:"name,omitempty"`
	IndividualPrice   decimal.Decimal `json:"individualPrice"`
	BundlePrice       decimal.Decimal `json:"bundlePrice"`
	SavingsAmount     decimal.Decimal `json:"savingsAmount"`
	SavingsPercentage int             `json:"savingsPercentage"`
}

// Quote prices an active selection.
type Quote struct {
	BundleID    string          `json:"bundleId,omitempty"`
	Kind        pricing.Kind    `json:"kind"`
	Selection   []string        `json:"selection"`
	Currency    string          `json:"currency"`
	Metrics     pricing.Metrics `json:"metrics"`
	AnnualPrice decimal.Decimal `json:"annualPrice"`
	Lines       []Line          `json:"lines"`
}

// Members returns the quote lines as pricing memberships.
func (q Quote) Members() []pricing.Membership {
	out := make([]pricing.Membership, 0, len(q.Lines))
	for _, l := range q.Lines {
		out = append(out, pricing.Membership{ProductID: l.ProductID, IndividualPrice: l.IndividualPrice, BundlePrice: l.BundlePrice})
	}
	return out
}

func buildQuote(kind pricing.Kind, declared int, members []pricing.Membership, names map[string]string) Quote {
	metrics := pricing.ComputeMetrics(members, kind, declared)
	lines := make([]Line, 0, len(members))
	selection := make([]string, 0, len(members))
	for i, saving := range pricing.LineSavings(members) {
		m := members[i]
		selection = append(selection, m.ProductID)
		lines = append(lines, Line{
			ProductID:         m.ProductID,
			Name:              names[m.ProductID],
			IndividualPrice:   m.IndividualPrice,
			BundlePrice:       m.BundlePrice,
			SavingsAmount:     saving.Amount,
			SavingsPercentage: saving.Percentage,
		})
	}
	return Quote{
		Kind:        kind,
		Selection:   selection,
		Metrics:     metrics,
		AnnualPrice: pricing.AnnualPrice(metrics.BundlePrice).Round(2),
		Lines:       lines,
	}
}

// violationError maps pricing and bundle errors onto API errors.
func violationError(err error) error {
	var v *pricing.ConstraintViolation
	if errors.As(err, &v) {
		e := common.NewAppError(string(v.Kind), v.Error(), http.StatusUnprocessableEntity, err)
		details := map[string]any{}
		if v.ProductID != "" {
			details["productId"] = v.ProductID
		}
		if v.Limit > 0 {
			details["limit"] = v.Limit
		}
		if len(details) > 0 {
			e.Details = details
		}
		return e
	}
	switch {
	case errors.Is(err, ErrNotCustomizable):
		return common.NewAppError("NOT_CUSTOMIZABLE", "bundle does not allow customization", http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrUnknownProduct):
		return common.NewAppError("UNKNOWN_PRODUCT", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrMixedCurrency):
		return common.NewAppError("MIXED_CURRENCY", "bundle products must share one currency", http.StatusUnprocessableEntity, err)
	}
	return err
}

func unknownProduct(id string) error {
	return fmt.Errorf("%w: %s", ErrUnknownProduct, id)
}
