package plans

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FallbackCatalog serves static plans when a vendor integration fails. Known
// products get their own list; everything else gets a generic tiered set.
type FallbackCatalog struct {
	byProduct map[string][]Plan
	currency  string
}

// NewFallbackCatalog builds a catalog from product-specific plan lists.
func NewFallbackCatalog(byProduct map[string][]Plan, currency string) FallbackCatalog {
	if currency == "" {
		currency = DefaultCurrency
	}
	m := make(map[string][]Plan, len(byProduct))
	for id, list := range byProduct {
		m[strings.ToLower(id)] = list
	}
	return FallbackCatalog{byProduct: m, currency: currency}
}

// DefaultFallbackCatalog returns the built-in static plans.
func DefaultFallbackCatalog(currency string) FallbackCatalog {
	return NewFallbackCatalog(map[string][]Plan{
		"zee5": {
			staticPlan("zee5-premium-1m", "Premium 1 Month", "99", 0, "Ad-free streaming", "Originals and movies", "2 screens"),
			staticPlan("zee5-premium-12m", "Premium 12 Months", "699", 41, "Ad-free streaming", "Originals and movies", "4 screens"),
		},
		"sonyliv": {
			staticPlan("sonyliv-mobile", "Mobile Only", "399", 0, "Live sports", "1 mobile screen"),
			staticPlan("sonyliv-premium", "Premium", "999", 17, "Live sports", "Ad-free originals", "5 screens"),
		},
		"canva": {
			staticPlan("canva-pro", "Canva Pro", "499", 0, "Premium templates", "Brand kit", "Background remover"),
			staticPlan("canva-teams", "Canva Teams", "1299", 10, "Everything in Pro", "Team collaboration", "Approval workflows"),
		},
	}, currency)
}

// Plans returns a copy of the static plans for hint. The first plan is always
// marked popular.
func (c FallbackCatalog) Plans(hint ProductHint) []Plan {
	currency := c.currency
	if currency == "" {
		currency = DefaultCurrency
	}
	src, ok := c.byProduct[strings.ToLower(hint.ID)]
	if !ok || len(src) == 0 {
		src = genericPlans(hint)
	}
	out := make([]Plan, len(src))
	for i, p := range src {
		p.Features = append([]string(nil), p.Features...)
		p.BillingOptions = append([]string(nil), defaultBillingOptions...)
		p.Popular = i == 0
		if p.Currency == "" {
			p.Currency = currency
		}
		out[i] = p
	}
	return out
}

// Has reports whether the catalog carries product-specific plans for id.
func (c FallbackCatalog) Has(productID string) bool {
	_, ok := c.byProduct[strings.ToLower(productID)]
	return ok
}

func genericPlans(hint ProductHint) []Plan {
	key := hint.key()
	label := hint.label()
	return []Plan{
		staticPlan(key+"-basic", label+" Basic", "9.99", 0, "Core features", "Email support"),
		staticPlan(key+"-pro", label+" Pro", "29.99", 0, "All Basic features", "Priority support", "Advanced analytics"),
		staticPlan(key+"-business", label+" Business", "79.99", 0, "All Pro features", "SSO", "Dedicated account manager"),
	}
}

func staticPlan(id, name, price string, discount int, features ...string) Plan {
	return Plan{
		ID:                 id,
		Name:               name,
		Description:        strings.Join(features, "\n"),
		Price:              decimal.RequireFromString(price),
		Features:           features,
		DiscountPercentage: discount,
	}
}
