package plans

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCanonicalIDs lists vendor plan ids that mark a single flat-rate offer.
var DefaultCanonicalIDs = []string{"plan_A0qs3dlK"}

const placeholderFeature = "Standard features"

var (
	defaultPrice          = decimal.RequireFromString("29.99")
	standardBilling       = []string{"standard"}
	defaultBillingOptions = []string{"monthly", "annual"}
	hundred               = decimal.NewFromInt(100)
)

// NormalizerConfig tunes a Normalizer.
type NormalizerConfig struct {
	CanonicalIDs []string
	Currencies   CurrencyTable
	DefaultPrice decimal.Decimal
}

// Normalizer converts raw vendor payloads to plans. It holds no mutable state.
type Normalizer struct {
	canonical    map[string]struct{}
	currencies   CurrencyTable
	defaultPrice decimal.Decimal
}

// NewNormalizer applies defaults to cfg.
func NewNormalizer(cfg NormalizerConfig) Normalizer {
	ids := cfg.CanonicalIDs
	if len(ids) == 0 {
		ids = DefaultCanonicalIDs
	}
	canonical := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		canonical[id] = struct{}{}
	}
	currencies := cfg.Currencies
	if currencies.symbols == nil {
		currencies = DefaultCurrencyTable(currencies.fallback)
	}
	price := cfg.DefaultPrice
	if price.Sign() <= 0 {
		price = defaultPrice
	}
	return Normalizer{canonical: canonical, currencies: currencies, defaultPrice: price}
}

// Normalize converts raw with the default configuration.
func Normalize(raw any, hint ProductHint) Result {
	return NewNormalizer(NormalizerConfig{}).Normalize(raw, hint)
}

// Normalize maps raw to plans. It accepts any decoded JSON value and never
// panics; unusable input yields an empty plan list.
func (n Normalizer) Normalize(raw any, hint ProductHint) Result {
	shape := Detect(raw)
	switch shape {
	case ShapeSingle:
		return n.single(raw.(map[string]any), hint, shape)
	case ShapeGrouped:
		if chosen, ok := n.pickGrouped(raw); ok {
			return n.single(chosen, hint, shape)
		}
	case ShapeFlat:
		list := raw.([]any)
		if chosen, ok := n.findCanonical(list); ok {
			return n.single(chosen, hint, shape)
		}
		return n.mapAll(list, hint)
	}
	return Result{Plans: []Plan{}, Shape: ShapeEmpty}
}

func (n Normalizer) single(obj map[string]any, hint ProductHint, shape Shape) Result {
	p := n.mapPlan(obj, 0, hint)
	p.Popular = true
	p.BillingOptions = append([]string(nil), standardBilling...)
	return Result{Plans: []Plan{p}, MultipleBillingCycles: false, Shape: shape}
}

func (n Normalizer) mapAll(list []any, hint ProductHint) Result {
	out := make([]Plan, 0, len(list))
	for i, el := range list {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}
		p := n.mapPlan(obj, i, hint)
		p.Popular = len(out) == 0
		if opts := stringList(obj, billingKeys); len(opts) > 0 {
			p.BillingOptions = opts
		} else {
			p.BillingOptions = append([]string(nil), defaultBillingOptions...)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return Result{Plans: []Plan{}, Shape: ShapeEmpty}
	}
	return Result{Plans: out, MultipleBillingCycles: true, Shape: ShapeFlat}
}

// pickGrouped searches every nested list for a canonical plan, falling back
// to the first entry of the first non-empty nested list.
func (n Normalizer) pickGrouped(raw any) (map[string]any, bool) {
	var groups [][]any
	switch v := raw.(type) {
	case []any:
		for _, el := range v {
			if list, ok := nestedList(el); ok {
				groups = append(groups, list)
			}
		}
	case map[string]any:
		if list, ok := nestedList(v); ok {
			groups = append(groups, list)
		}
	}
	for _, g := range groups {
		if chosen, ok := n.findCanonical(g); ok {
			return chosen, true
		}
	}
	for _, g := range groups {
		for _, el := range g {
			if obj, ok := el.(map[string]any); ok {
				return obj, true
			}
		}
	}
	return nil, false
}

func (n Normalizer) findCanonical(list []any) (map[string]any, bool) {
	for _, el := range list {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}
		for _, k := range idKeys {
			id, ok := obj[k].(string)
			if !ok {
				continue
			}
			if _, hit := n.canonical[id]; hit {
				return obj, true
			}
		}
	}
	return nil, false
}

func (n Normalizer) mapPlan(obj map[string]any, index int, hint ProductHint) Plan {
	p := Plan{}
	if id, ok := stringField(obj, idKeys); ok {
		p.ID = id
	} else {
		p.ID = fmt.Sprintf("%s-plan-%d", hint.key(), index)
	}
	if name, ok := stringField(obj, nameKeys); ok {
		p.Name = name
	} else {
		p.Name = hint.label() + " Plan"
	}
	p.Description, _ = stringField(obj, descriptionKeys)

	price, hasPrice := numberField(obj, priceKeys)
	if !hasPrice {
		price = n.defaultPrice
	}
	p.Price = price

	p.Features = stringList(obj, featureKeys)
	if len(p.Features) == 0 {
		p.Features = splitLines(p.Description)
	}
	if len(p.Features) == 0 {
		p.Features = []string{placeholderFeature}
	}

	p.DiscountPercentage = discount(obj, price, hasPrice)

	code, _ := stringField(obj, currencyKeys)
	p.Currency = n.currencies.Normalize(code)
	return p
}

func discount(obj map[string]any, price decimal.Decimal, hasPrice bool) int {
	if explicit, ok := numberField(obj, discountKeys); ok {
		return clampPercent(explicit)
	}
	mrp, ok := numberField(obj, mrpKeys)
	if !ok || !hasPrice || mrp.Sign() <= 0 {
		return 0
	}
	return clampPercent(mrp.Sub(price).Div(mrp).Mul(hundred))
}

func clampPercent(v decimal.Decimal) int {
	r := v.Round(0)
	switch {
	case r.Sign() < 0:
		return 0
	case r.GreaterThan(hundred):
		return 100
	default:
		return int(r.IntPart())
	}
}
