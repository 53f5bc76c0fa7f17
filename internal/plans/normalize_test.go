package plans

import (
	"encoding/json"
	"math/rand"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCanonicalSnakeCasePlan(t *testing.T) {
	raw := []any{
		map[string]any{
			"plan_id":          "plan_A0qs3dlK",
			"plan_name":        "1 Month",
			"plan_cost":        60.0,
			"plan_mrp":         80.0,
			"plan_description": "Feature1\nFeature2",
		},
	}
	res := Normalize(raw, ProductHint{ID: "zee5"})
	require.Len(t, res.Plans, 1)
	p := res.Plans[0]
	require.Equal(t, "plan_A0qs3dlK", p.ID)
	require.Equal(t, "1 Month", p.Name)
	require.True(t, p.Price.Equal(decimal.NewFromInt(60)), "price %s", p.Price)
	require.Equal(t, 25, p.DiscountPercentage)
	require.Equal(t, []string{"Feature1", "Feature2"}, p.Features)
	require.True(t, p.Popular)
	require.Equal(t, []string{"standard"}, p.BillingOptions)
	require.Equal(t, DefaultCurrency, p.Currency)
	require.False(t, res.MultipleBillingCycles)
}

func TestNormalizeEmptyList(t *testing.T) {
	res := Normalize([]any{}, ProductHint{ID: "x"})
	require.NotNil(t, res.Plans)
	require.Empty(t, res.Plans)
	require.Equal(t, ShapeEmpty, res.Shape)
	require.False(t, res.MultipleBillingCycles)
}

func TestNormalizeFlatMapsEveryElement(t *testing.T) {
	raw := []any{
		map[string]any{"planId": "m", "planName": "Monthly", "planCost": 100.0, "planMrp": 125.0, "currencyCode": "usd"},
		map[string]any{"plan_name": "Annual", "price": 1000.0, "discountPercentage": 150.0, "featureList": []any{"A", " ", "B"}},
		"junk",
		map[string]any{},
	}
	res := Normalize(raw, ProductHint{ID: "zee5", Name: "ZEE5"})
	require.Equal(t, ShapeFlat, res.Shape)
	require.True(t, res.MultipleBillingCycles)
	require.Len(t, res.Plans, 3)

	first := res.Plans[0]
	require.Equal(t, "m", first.ID)
	require.Equal(t, "Monthly", first.Name)
	require.Equal(t, 20, first.DiscountPercentage)
	require.Equal(t, "USD", first.Currency)
	require.True(t, first.Popular)
	require.Equal(t, []string{"monthly", "annual"}, first.BillingOptions)

	second := res.Plans[1]
	require.Equal(t, "zee5-plan-1", second.ID)
	require.Equal(t, 100, second.DiscountPercentage)
	require.Equal(t, []string{"A", "B"}, second.Features)
	require.False(t, second.Popular)

	third := res.Plans[2]
	require.Equal(t, "zee5-plan-3", third.ID)
	require.Equal(t, "ZEE5 Plan", third.Name)
	require.True(t, third.Price.Equal(decimal.RequireFromString("29.99")))
	require.Equal(t, []string{placeholderFeature}, third.Features)
	require.Equal(t, 0, third.DiscountPercentage)
}

func TestNormalizeFlatCanonicalWins(t *testing.T) {
	raw := []any{
		map[string]any{"id": "basic", "price": 10.0},
		map[string]any{"id": "plan_A0qs3dlK", "price": 15.0},
	}
	res := Normalize(raw, ProductHint{ID: "p"})
	require.Len(t, res.Plans, 1)
	require.Equal(t, "plan_A0qs3dlK", res.Plans[0].ID)
	require.Equal(t, ShapeFlat, res.Shape)
}

func TestNormalizeGroupedPrefersCanonical(t *testing.T) {
	raw := []any{
		map[string]any{"name": "Group A", "plans": []any{map[string]any{"id": "x1", "price": 10.0}}},
		map[string]any{"name": "Group B", "planList": []any{
			map[string]any{"id": "x2", "price": 20.0},
			map[string]any{"id": "plan_A0qs3dlK", "price": 5.0},
		}},
	}
	res := Normalize(raw, ProductHint{ID: "sony"})
	require.Equal(t, ShapeGrouped, res.Shape)
	require.Len(t, res.Plans, 1)
	require.Equal(t, "plan_A0qs3dlK", res.Plans[0].ID)
	require.True(t, res.Plans[0].Popular)
	require.False(t, res.MultipleBillingCycles)
}

func TestNormalizeGroupedFallsBackToFirstEntry(t *testing.T) {
	raw := []any{
		[]any{},
		[]any{map[string]any{"id": "first", "price": "12.50"}, map[string]any{"id": "second"}},
	}
	res := Normalize(raw, ProductHint{ID: "p"})
	require.Equal(t, ShapeGrouped, res.Shape)
	require.Len(t, res.Plans, 1)
	require.Equal(t, "first", res.Plans[0].ID)
	require.True(t, res.Plans[0].Price.Equal(decimal.RequireFromString("12.5")))
}

func TestNormalizeFlatPlansWithAddOnItems(t *testing.T) {
	raw := []any{
		map[string]any{"id": "basic", "price": 10.0, "items": []any{
			map[string]any{"name": "Extra storage", "price": 2.0},
		}},
		map[string]any{"id": "pro", "price": 20.0, "plans": []any{"HD", "4K"}},
	}
	require.Equal(t, ShapeFlat, Detect(raw))
	res := Normalize(raw, ProductHint{ID: "p"})
	require.Equal(t, ShapeFlat, res.Shape)
	require.Len(t, res.Plans, 2)
	require.Equal(t, "basic", res.Plans[0].ID)
	require.Equal(t, "pro", res.Plans[1].ID)

	single := map[string]any{"id": "solo", "price": 5.0, "items": []any{map[string]any{"id": "addon"}}}
	require.Equal(t, ShapeSingle, Detect(single))
}

func TestNormalizeConfiguredCanonicalIDs(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{CanonicalIDs: []string{"flat-rate"}})
	raw := []any{map[string]any{"id": "a"}, map[string]any{"plan_id": "flat-rate"}}
	res := n.Normalize(raw, ProductHint{ID: "p"})
	require.Len(t, res.Plans, 1)
	require.Equal(t, "flat-rate", res.Plans[0].ID)
}

func TestNormalizeSingleObjectAndErrorShape(t *testing.T) {
	res := Normalize(map[string]any{"id": "solo", "price": 5.0}, ProductHint{ID: "p"})
	require.Equal(t, ShapeSingle, res.Shape)
	require.Len(t, res.Plans, 1)
	require.Equal(t, []string{"standard"}, res.Plans[0].BillingOptions)

	res = Normalize(map[string]any{"error": true, "message": "upstream down"}, ProductHint{ID: "p"})
	require.Empty(t, res.Plans)
	require.True(t, IsErrorShape(map[string]any{"error": "timeout"}))
	require.False(t, IsErrorShape(map[string]any{"error": false}))
	require.False(t, IsErrorShape([]any{}))
}

func TestNormalizeCurrencyHandling(t *testing.T) {
	raw := []any{
		map[string]any{"id": "a", "currency": " eur "},
		map[string]any{"id": "b", "currency": "XYZ"},
		map[string]any{"id": "c", "currency_code": "gbp"},
	}
	n := NewNormalizer(NormalizerConfig{Currencies: DefaultCurrencyTable("USD")})
	res := n.Normalize(raw, ProductHint{ID: "p"})
	require.Equal(t, "EUR", res.Plans[0].Currency)
	require.Equal(t, "USD", res.Plans[1].Currency)
	require.Equal(t, "GBP", res.Plans[2].Currency)
}

func TestNormalizeDecodedJSONNumbers(t *testing.T) {
	dec := json.NewDecoder(strings.NewReader(`[{"planId":"a","planCost":"49.5","planMrp":99}]`))
	dec.UseNumber()
	var raw any
	require.NoError(t, dec.Decode(&raw))
	res := Normalize(raw, ProductHint{ID: "p"})
	require.Len(t, res.Plans, 1)
	require.True(t, res.Plans[0].Price.Equal(decimal.RequireFromString("49.5")))
	require.Equal(t, 50, res.Plans[0].DiscountPercentage)
}

func TestNormalizeNegativePriceUsesDefault(t *testing.T) {
	res := Normalize([]any{map[string]any{"price": -3.0, "mrp": 10.0}}, ProductHint{ID: "p"})
	require.True(t, res.Plans[0].Price.Equal(decimal.RequireFromString("29.99")))
	require.Equal(t, 0, res.Plans[0].DiscountPercentage)
}

func TestNormalizeNeverPanics(t *testing.T) {
	inputs := []any{
		nil, 1.0, "x", true,
		[]any{}, []any{nil}, map[string]any{},
		[]any{[]any{[]any{[]any{}}}},
		[]any{map[string]any{"plans": "not-a-list"}},
		[]any{map[string]any{"plans": []any{1.0, "two", nil}}},
		[]any{map[string]any{"price": "abc", "features": []any{nil, 3.0, map[string]any{}}}},
		[]any{map[string]any{"id": nil, "name": nil, "price": nil, "currency": 5.0}},
		map[string]any{"items": []any{map[string]any{"id": "nested"}}},
	}
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 300; i++ {
		inputs = append(inputs, randomJSON(rng, 4))
	}
	table := DefaultCurrencyTable("")
	for _, raw := range inputs {
		var res Result
		require.NotPanics(t, func() { res = Normalize(raw, ProductHint{ID: "fuzz"}) })
		require.NotNil(t, res.Plans)
		for _, p := range res.Plans {
			require.GreaterOrEqual(t, p.Price.Sign(), 0)
			require.GreaterOrEqual(t, p.DiscountPercentage, 0)
			require.LessOrEqual(t, p.DiscountPercentage, 100)
			require.NotEmpty(t, p.Features)
			require.NotEmpty(t, p.BillingOptions)
			require.Len(t, p.Currency, 3)
			require.Equal(t, p.Currency, table.Normalize(p.Currency))
		}
	}
}

var fuzzKeys = []string{"id", "plan_id", "name", "plan_cost", "price", "mrp", "plan_mrp", "features", "plans", "items", "currency", "description", "discountPercentage", "error"}

func randomJSON(rng *rand.Rand, depth int) any {
	kind := rng.Intn(7)
	if depth == 0 && kind >= 5 {
		kind = rng.Intn(5)
	}
	switch kind {
	case 0:
		return nil
	case 1:
		return rng.NormFloat64() * 100
	case 2:
		return []string{"", "usd", "plan_A0qs3dlK", "a\nb", "-5", "12.5"}[rng.Intn(6)]
	case 3:
		return rng.Intn(2) == 0
	case 4:
		return json.Number([]string{"1", "-2", "3.75", "1e400"}[rng.Intn(4)])
	case 5:
		n := rng.Intn(4)
		list := make([]any, 0, n)
		for i := 0; i < n; i++ {
			list = append(list, randomJSON(rng, depth-1))
		}
		return list
	default:
		n := rng.Intn(5)
		obj := make(map[string]any, n)
		for i := 0; i < n; i++ {
			obj[fuzzKeys[rng.Intn(len(fuzzKeys))]] = randomJSON(rng, depth-1)
		}
		return obj
	}
}

func TestCurrencyTableFallback(t *testing.T) {
	table := NewCurrencyTable(map[string]string{"usd": "$", "toolong": "?"}, "sgd")
	require.Equal(t, "SGD", table.Fallback())
	require.Equal(t, "S$", table.Symbol("SGD"))
	require.Equal(t, "$", table.Symbol("usd"))
	require.Equal(t, "S$", table.Symbol("nope"))

	custom := NewCurrencyTable(nil, "XTS")
	require.Equal(t, "XTS", custom.Symbol("anything"))

	var zero CurrencyTable
	require.Equal(t, DefaultCurrency, zero.Normalize("usd"))
}

func TestFallbackCatalog(t *testing.T) {
	catalog := DefaultFallbackCatalog("INR")
	plans := catalog.Plans(ProductHint{ID: "ZEE5"})
	require.Len(t, plans, 2)
	require.True(t, plans[0].Popular)
	require.False(t, plans[1].Popular)
	require.Equal(t, "INR", plans[0].Currency)

	generic := catalog.Plans(ProductHint{ID: "unknown", Name: "Acme"})
	require.Len(t, generic, 3)
	require.Equal(t, "unknown-basic", generic[0].ID)
	require.Equal(t, "Acme Pro", generic[1].Name)

	plans[0].Features[0] = "mutated"
	again := catalog.Plans(ProductHint{ID: "zee5"})
	require.NotEqual(t, "mutated", again[0].Features[0])
	require.True(t, catalog.Has("SonyLIV"))
}
