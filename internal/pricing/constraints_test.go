package pricing

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToggleRejectsRequiredProduct(t *testing.T) {
	current := NewSelection("quickbooks", "slack", "zoom")
	c := Constraints{MinProducts: 2, MaxProducts: 6, RequiredProductIDs: []string{"quickbooks"}}

	next, err := ToggleMembership(current, "quickbooks", c)
	require.ErrorIs(t, err, ErrRequiredProduct)
	var cv *ConstraintViolation
	require.True(t, errors.As(err, &cv))
	require.Equal(t, RequiredProduct, cv.Kind)
	require.Equal(t, "quickbooks", cv.ProductID)
	require.Equal(t, Selection{"quickbooks", "slack", "zoom"}, next)
	require.Equal(t, Selection{"quickbooks", "slack", "zoom"}, current)
}

func TestToggleMaxExceeded(t *testing.T) {
	current := NewSelection("a", "b", "c")
	next, err := ToggleMembership(current, "d", Constraints{MinProducts: 1, MaxProducts: 3})
	require.ErrorIs(t, err, ErrMaxExceeded)
	require.NotErrorIs(t, err, ErrMinViolated)
	require.Equal(t, current, next)
}

func TestToggleMinViolated(t *testing.T) {
	current := NewSelection("a", "b")
	next, err := ToggleMembership(current, "b", Constraints{MinProducts: 2, MaxProducts: 6})
	require.ErrorIs(t, err, ErrMinViolated)
	require.Equal(t, current, next)
}

func TestToggleDefaultsApply(t *testing.T) {
	current := NewSelection("a", "b", "c", "d", "e", "f")
	_, err := ToggleMembership(current, "g", Constraints{})
	require.ErrorIs(t, err, ErrMaxExceeded)

	_, err = ToggleMembership(NewSelection("a", "b"), "a", Constraints{})
	require.ErrorIs(t, err, ErrMinViolated)
}

func TestToggleDoesNotAliasInput(t *testing.T) {
	backing := make(Selection, 2, 8)
	copy(backing, Selection{"a", "b"})
	next, err := ToggleMembership(backing, "c", Constraints{MinProducts: 1, MaxProducts: 6})
	require.NoError(t, err)
	next[0] = "z"
	require.Equal(t, "a", backing[0])
}

func TestToggleTwiceRestoresSet(t *testing.T) {
	c := Constraints{MinProducts: 1, MaxProducts: 6}
	for _, start := range []Selection{
		NewSelection("a", "b"),
		NewSelection("a", "b", "c"),
		NewSelection("x", "y", "z", "w"),
	} {
		for _, id := range []string{"a", "b", "q"} {
			once, err := ToggleMembership(start, id, c)
			if err != nil {
				continue
			}
			twice, err := ToggleMembership(once, id, c)
			require.NoError(t, err)
			require.ElementsMatch(t, start, twice)
		}
	}
}

func TestToggleSequencesKeepRequiredProducts(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	catalog := []string{"quickbooks", "slack", "zoom", "notion", "figma", "jira", "miro", "canva"}
	c := Constraints{MinProducts: 2, MaxProducts: 6, RequiredProductIDs: []string{"quickbooks", "slack"}}

	for run := 0; run < 100; run++ {
		sel := NewSelection("quickbooks", "slack", "zoom")
		for step := 0; step < 50; step++ {
			next, err := ToggleMembership(sel, catalog[rng.Intn(len(catalog))], c)
			if err != nil {
				require.Equal(t, sel, next)
				continue
			}
			sel = next
			require.True(t, sel.Contains("quickbooks"))
			require.True(t, sel.Contains("slack"))
			require.GreaterOrEqual(t, len(sel), c.MinProducts)
			require.LessOrEqual(t, len(sel), c.MaxProducts)
			require.NoError(t, c.Validate(sel))
		}
	}
}

func TestValidate(t *testing.T) {
	c := Constraints{MinProducts: 2, MaxProducts: 3, RequiredProductIDs: []string{"a"}}
	require.NoError(t, c.Validate(NewSelection("a", "b")))
	require.ErrorIs(t, c.Validate(NewSelection("b", "c")), ErrRequiredProduct)
	require.ErrorIs(t, c.Validate(NewSelection("a")), ErrMinViolated)
	require.ErrorIs(t, c.Validate(NewSelection("a", "b", "c", "d")), ErrMaxExceeded)
}

func TestNewSelectionDropsBlanksAndDuplicates(t *testing.T) {
	require.Equal(t, Selection{"a", "b"}, NewSelection("a", "", "b", "a"))
}
