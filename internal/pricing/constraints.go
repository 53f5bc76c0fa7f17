package pricing

import "fmt"

const (
	// DefaultMinProducts applies when a bundle does not declare a minimum.
	DefaultMinProducts = 2
	// DefaultMaxProducts applies when a bundle does not declare a maximum.
	DefaultMaxProducts = 6
)

// Violation identifies which composition rule a change would break.
type Violation string

const (
	MaxExceeded     Violation = "MAX_EXCEEDED"
	MinViolated     Violation = "MIN_VIOLATED"
	RequiredProduct Violation = "REQUIRED_PRODUCT"
)

// ConstraintViolation describes a rejected membership change.
type ConstraintViolation struct {
	Kind      Violation
	ProductID string
	Limit     int
}

func (e *ConstraintViolation) Error() string {
	switch e.Kind {
	case MaxExceeded:
		return fmt.Sprintf("bundle allows at most %d products", e.Limit)
	case MinViolated:
		return fmt.Sprintf("bundle requires at least %d products", e.Limit)
	case RequiredProduct:
		if e.ProductID != "" {
			return fmt.Sprintf("product %s is required in this bundle", e.ProductID)
		}
		return "product is required in this bundle"
	default:
		return "bundle constraint violated"
	}
}

// Is matches violations by kind so callers can use errors.Is with the sentinels.
func (e *ConstraintViolation) Is(target error) bool {
	t, ok := target.(*ConstraintViolation)
	return ok && t.Kind == e.Kind
}

var (
	// ErrMaxExceeded is returned when adding would exceed the maximum product count.
	ErrMaxExceeded error = &ConstraintViolation{Kind: MaxExceeded}
	// ErrMinViolated is returned when removing would drop below the minimum product count.
	ErrMinViolated error = &ConstraintViolation{Kind: MinViolated}
	// ErrRequiredProduct is returned when removing a product the bundle requires.
	ErrRequiredProduct error = &ConstraintViolation{Kind: RequiredProduct}
)

// Constraints bound the composition of a customizable bundle.
type Constraints struct {
	MinProducts        int      `json:"minProducts"`
	MaxProducts        int      `json:"maxProducts"`
	RequiredProductIDs []string `json:"requiredProductIds,omitempty"`
}

// Effective fills unset bounds with the defaults.
func (c Constraints) Effective() Constraints {
	if c.MinProducts <= 0 {
		c.MinProducts = DefaultMinProducts
	}
	if c.MaxProducts <= 0 {
		c.MaxProducts = DefaultMaxProducts
	}
	return c
}

// IsRequired reports whether productID must stay in every active selection.
func (c Constraints) IsRequired(productID string) bool {
	for _, id := range c.RequiredProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// Validate checks a complete selection against the constraints.
func (c Constraints) Validate(sel Selection) error {
	c = c.Effective()
	for _, id := range c.RequiredProductIDs {
		if !sel.Contains(id) {
			return &ConstraintViolation{Kind: RequiredProduct, ProductID: id}
		}
	}
	if len(sel) < c.MinProducts {
		return &ConstraintViolation{Kind: MinViolated, Limit: c.MinProducts}
	}
	if len(sel) > c.MaxProducts {
		return &ConstraintViolation{Kind: MaxExceeded, Limit: c.MaxProducts}
	}
	return nil
}

// Selection is the ordered set of active product ids of a bundle instance.
type Selection []string

// NewSelection builds a selection dropping blanks and duplicates.
func NewSelection(ids ...string) Selection {
	out := make(Selection, 0, len(ids))
	for _, id := range ids {
		if id == "" || out.Contains(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Contains reports whether id is active.
func (s Selection) Contains(id string) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// ToggleMembership adds productID when absent and removes it when present. The
// current selection is never modified; on violation it is returned unchanged
// together with a *ConstraintViolation.
func ToggleMembership(current Selection, productID string, c Constraints) (Selection, error) {
	c = c.Effective()
	if current.Contains(productID) {
		if c.IsRequired(productID) {
			return current, &ConstraintViolation{Kind: RequiredProduct, ProductID: productID}
		}
		if len(current)-1 < c.MinProducts {
			return current, &ConstraintViolation{Kind: MinViolated, ProductID: productID, Limit: c.MinProducts}
		}
		next := make(Selection, 0, len(current)-1)
		for _, id := range current {
			if id != productID {
				next = append(next, id)
			}
		}
		return next, nil
	}
	if len(current)+1 > c.MaxProducts {
		return current, &ConstraintViolation{Kind: MaxExceeded, ProductID: productID, Limit: c.MaxProducts}
	}
	next := make(Selection, len(current), len(current)+1)
	copy(next, current)
	return append(next, productID), nil
}
