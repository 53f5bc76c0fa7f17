package plans

import "github.com/shopspring/decimal"

// Plan is the uniform representation of a vendor subscription plan.
type Plan struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Price              decimal.Decimal `json:"price"`
	Features           []string        `json:"features"`
	Popular            bool            `json:"popular"`
	BillingOptions     []string        `json:"billingOptions"`
	DiscountPercentage int             `json:"discountPercentage"`
	Currency           string          `json:"currency"`
}

// ProductHint identifies the product a raw payload belongs to. It seeds
// synthesized ids and names.
type ProductHint struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h ProductHint) label() string {
	if h.Name != "" {
		return h.Name
	}
	if h.ID != "" {
		return h.ID
	}
	return "Product"
}

func (h ProductHint) key() string {
	if h.ID != "" {
		return h.ID
	}
	return "product"
}

// Result is the outcome of normalizing one vendor payload.
type Result struct {
	Plans                 []Plan `json:"plans"`
	MultipleBillingCycles bool   `json:"multipleBillingCycles"`
	Shape                 Shape  `json:"shape"`
}

// Shape classifies a raw vendor payload.
type Shape string

const (
	ShapeEmpty   Shape = "empty"
	ShapeFlat    Shape = "flat"
	ShapeGrouped Shape = "grouped"
	ShapeSingle  Shape = "single"
)

var groupKeys = []string{"plans", "planList", "plan_list"}

// Detect classifies raw. Error-shaped objects, scalars and empty lists are
// ShapeEmpty. A list holding nested plan lists, either directly or under a
// grouping key, is ShapeGrouped.
func Detect(raw any) Shape {
	switch v := raw.(type) {
	case []any:
		if len(v) == 0 {
			return ShapeEmpty
		}
		for _, el := range v {
			if _, ok := nestedList(el); ok {
				return ShapeGrouped
			}
		}
		return ShapeFlat
	case map[string]any:
		if IsErrorShape(v) {
			return ShapeEmpty
		}
		if _, ok := nestedList(v); ok {
			return ShapeGrouped
		}
		if looksLikePlan(v) {
			return ShapeSingle
		}
		return ShapeEmpty
	default:
		return ShapeEmpty
	}
}

// IsErrorShape reports whether raw is an upstream error envelope such as
// {"error": true, "message": "..."}.
func IsErrorShape(raw any) bool {
	obj, ok := raw.(map[string]any)
	if !ok {
		return false
	}
	switch flag := obj["error"].(type) {
	case bool:
		return flag
	case string:
		return flag != ""
	case map[string]any:
		return true
	default:
		return false
	}
}

func nestedList(el any) ([]any, bool) {
	switch v := el.(type) {
	case []any:
		return v, true
	case map[string]any:
		for _, k := range groupKeys {
			if list, ok := v[k].([]any); ok && holdsPlans(list) {
				return list, true
			}
		}
	}
	return nil, false
}

// holdsPlans reports whether at least one entry of list is a plan-like object.
func holdsPlans(list []any) bool {
	for _, el := range list {
		if obj, ok := el.(map[string]any); ok && looksLikePlan(obj) {
			return true
		}
	}
	return false
}

func looksLikePlan(obj map[string]any) bool {
	for _, set := range [][]string{idKeys, nameKeys, priceKeys} {
		if _, ok := firstPresent(obj, set); ok {
			return true
		}
	}
	return false
}
