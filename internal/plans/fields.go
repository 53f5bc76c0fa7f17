package plans

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Vendor field aliases in lookup order: camelCase first, snake_case after.
var (
	idKeys          = []string{"id", "planId", "plan_id"}
	nameKeys        = []string{"name", "planName", "plan_name", "title"}
	descriptionKeys = []string{"description", "planDescription", "plan_description"}
	priceKeys       = []string{"price", "planCost", "planPrice", "discountedPrice", "plan_cost", "plan_price", "discounted_price"}
	mrpKeys         = []string{"mrp", "planMrp", "originalPrice", "plan_mrp", "original_price"}
	discountKeys    = []string{"discountPercentage", "discount_percentage"}
	featureKeys     = []string{"features", "featureList", "feature_list"}
	currencyKeys    = []string{"currency", "currencyCode", "currency_code"}
	billingKeys     = []string{"billingOptions", "billingCycles", "billing_options", "billing_cycles"}
)

func firstPresent(obj map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(obj map[string]any, keys []string) (string, bool) {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s, true
			}
		case float64, json.Number, int, int64:
			return fmt.Sprint(v), true
		}
	}
	return "", false
}

// numberField returns the first non-negative finite number under keys.
// Numeric strings are accepted.
func numberField(obj map[string]any, keys []string) (decimal.Decimal, bool) {
	for _, k := range keys {
		if d, ok := toDecimal(obj[k]); ok {
			return d, true
		}
	}
	return decimal.Zero, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	var (
		d   decimal.Decimal
		err error
	)
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		d = decimal.NewFromFloat(n)
	case int:
		d = decimal.NewFromInt(int64(n))
	case int64:
		d = decimal.NewFromInt(n)
	case json.Number:
		d, err = decimal.NewFromString(n.String())
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return decimal.Zero, false
		}
		d, err = decimal.NewFromString(s)
	default:
		return decimal.Zero, false
	}
	if err != nil || d.Sign() < 0 {
		return decimal.Zero, false
	}
	return d, true
}

func stringList(obj map[string]any, keys []string) []string {
	for _, k := range keys {
		list, ok := obj[k].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(list))
		for _, item := range list {
			var s string
			switch v := item.(type) {
			case string:
				s = strings.TrimSpace(v)
			case float64, json.Number, bool:
				s = fmt.Sprint(v)
			case map[string]any:
				s, _ = stringField(v, []string{"name", "title", "text", "description"})
			}
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func splitLines(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
