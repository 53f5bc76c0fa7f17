package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is a monetary amount in major currency units.
type Money = decimal.Decimal

// Kind distinguishes curated bundles from ad-hoc builder bundles.
type Kind string

const (
	// KindCurated bundles carry an authored nominal savings percentage.
	KindCurated Kind = "curated"
	// KindBuilder bundles derive their discount from the product count.
	KindBuilder Kind = "builder"
)

const (
	// AnnualMonths is the number of billed months in an annual cycle.
	AnnualMonths = 12
	// AnnualIncentive is the multiplier applied to annual billing (flat 10% off).
	AnnualIncentive = 0.9
)

// ErrInvalidPrice is returned when a price entering the engine is negative or not a number.
var ErrInvalidPrice = errors.New("pricing: invalid price")

var hundred = decimal.NewFromInt(100)

// Membership is a product's participation in a bundle.
type Membership struct {
	ProductID       string `json:"productId"`
	IndividualPrice Money  `json:"individualPrice"`
	BundlePrice     Money  `json:"bundlePrice"`
}

// Metrics aggregates the derived pricing figures of an active membership set.
type Metrics struct {
	TotalProducts     int   `json:"totalProducts"`
	IndividualPrice   Money `json:"individualPrice"`
	BundlePrice       Money `json:"bundlePrice"`
	SavingsPercentage int   `json:"savingsPercentage"`
	SavingsAmount     Money `json:"savingsAmount"`
}

// LineSaving is the per-product share of a bundle's savings.
type LineSaving struct {
	ProductID  string `json:"productId"`
	Amount     Money  `json:"amount"`
	Percentage int    `json:"percentage"`
}

// Allocation is the portion of a charged total attributed to one product.
type Allocation struct {
	ProductID string `json:"productId"`
	Amount    Money  `json:"amount"`
}

// NewMembership validates prices coming from storage or requests.
func NewMembership(productID string, individual, bundle Money) (Membership, error) {
	if individual.Sign() < 0 {
		return Membership{}, fmt.Errorf("%s individual price: %w", productID, ErrInvalidPrice)
	}
	if bundle.Sign() < 0 {
		return Membership{}, fmt.Errorf("%s bundle price: %w", productID, ErrInvalidPrice)
	}
	return Membership{ProductID: productID, IndividualPrice: individual, BundlePrice: bundle}, nil
}

// FromFloat converts a float price, rejecting NaN, infinities and negatives.
func FromFloat(v float64) (Money, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return decimal.Zero, ErrInvalidPrice
	}
	return decimal.NewFromFloat(v), nil
}

// ComputeMetrics sums the membership prices. Curated bundles report the declared
// savings percentage unchanged; builder bundles report the count-based tier.
func ComputeMetrics(members []Membership, kind Kind, declaredSavings int) Metrics {
	individual := decimal.Zero
	bundle := decimal.Zero
	for _, m := range members {
		individual = individual.Add(m.IndividualPrice)
		bundle = bundle.Add(m.BundlePrice)
	}
	metrics := Metrics{
		TotalProducts:   len(members),
		IndividualPrice: individual,
		BundlePrice:     bundle,
		SavingsAmount:   individual.Sub(bundle),
	}
	if len(members) == 0 {
		return metrics
	}
	switch kind {
	case KindBuilder:
		metrics.SavingsPercentage = DiscountTier(len(members))
	default:
		metrics.SavingsPercentage = declaredSavings
	}
	return metrics
}

// DiscountTier returns the builder discount percentage for a product count.
func DiscountTier(productCount int) int {
	switch {
	case productCount >= 7:
		return 30
	case productCount >= 5:
		return 25
	case productCount >= 3:
		return 20
	case productCount >= 2:
		return 15
	default:
		return 0
	}
}

// BuilderMembers prices ad-hoc selections: every product is discounted by the
// tier for the selection size, rounded to cents.
func BuilderMembers(products []Membership) []Membership {
	tier := decimal.NewFromInt(int64(DiscountTier(len(products))))
	factor := hundred.Sub(tier).Div(hundred)
	out := make([]Membership, 0, len(products))
	for _, p := range products {
		out = append(out, Membership{
			ProductID:       p.ProductID,
			IndividualPrice: p.IndividualPrice,
			BundlePrice:     p.IndividualPrice.Mul(factor).Round(2),
		})
	}
	return out
}

// SavingsPercentage is round((individual - bundle) / individual * 100), zero when
// the individual price is zero.
func SavingsPercentage(individual, bundle Money) int {
	if individual.Sign() <= 0 {
		return 0
	}
	return int(individual.Sub(bundle).Div(individual).Mul(hundred).Round(0).IntPart())
}

// LineSavings reports each member's own savings amount and percentage.
func LineSavings(members []Membership) []LineSaving {
	out := make([]LineSaving, 0, len(members))
	for _, m := range members {
		out = append(out, LineSaving{
			ProductID:  m.ProductID,
			Amount:     m.IndividualPrice.Sub(m.BundlePrice),
			Percentage: SavingsPercentage(m.IndividualPrice, m.BundlePrice),
		})
	}
	return out
}

// Allocate spreads total across members proportionally to their bundle price.
// Shares are rounded to cents and the rounding remainder lands on the last member
// so the allocations always add up to total.
func Allocate(members []Membership, total Money) []Allocation {
	if len(members) == 0 {
		return nil
	}
	weight := decimal.Zero
	for _, m := range members {
		weight = weight.Add(m.BundlePrice)
	}
	out := make([]Allocation, 0, len(members))
	remaining := total
	for i, m := range members {
		if i == len(members)-1 {
			out = append(out, Allocation{ProductID: m.ProductID, Amount: remaining})
			break
		}
		var share Money
		if weight.Sign() > 0 {
			share = total.Mul(m.BundlePrice).Div(weight).Round(2)
		} else {
			share = total.Div(decimal.NewFromInt(int64(len(members)))).Round(2)
		}
		out = append(out, Allocation{ProductID: m.ProductID, Amount: share})
		remaining = remaining.Sub(share)
	}
	return out
}

// ActiveMembers keeps the members whose product is part of the selection,
// preserving membership order.
func ActiveMembers(members []Membership, sel Selection) []Membership {
	out := make([]Membership, 0, len(sel))
	for _, m := range members {
		if sel.Contains(m.ProductID) {
			out = append(out, m)
		}
	}
	return out
}

// AnnualPrice converts a monthly bundle price into the discounted annual price.
func AnnualPrice(monthlyBundlePrice Money) Money {
	return monthlyBundlePrice.
		Mul(decimal.NewFromInt(AnnualMonths)).
		Mul(decimal.NewFromFloat(AnnualIncentive))
}
