package pricing

import (
	"math"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(v string) Money {
	return decimal.RequireFromString(v)
}

func TestComputeMetricsSumsMembers(t *testing.T) {
	members := []Membership{
		{ProductID: "a", IndividualPrice: dec("10"), BundlePrice: dec("8")},
		{ProductID: "b", IndividualPrice: dec("20"), BundlePrice: dec("15")},
	}
	m := ComputeMetrics(members, KindCurated, 20)
	require.Equal(t, 2, m.TotalProducts)
	require.True(t, m.IndividualPrice.Equal(dec("30")), "individual %s", m.IndividualPrice)
	require.True(t, m.BundlePrice.Equal(dec("23")), "bundle %s", m.BundlePrice)
	require.True(t, m.SavingsAmount.Equal(dec("7")), "savings %s", m.SavingsAmount)
	require.Equal(t, 20, m.SavingsPercentage)
}

func TestComputeMetricsCuratedKeepsDeclaredSavings(t *testing.T) {
	members := []Membership{
		{ProductID: "a", IndividualPrice: dec("100"), BundlePrice: dec("50")},
	}
	m := ComputeMetrics(members, KindCurated, 12)
	require.Equal(t, 12, m.SavingsPercentage)
}

func TestComputeMetricsBuilderUsesTier(t *testing.T) {
	products := make([]Membership, 0, 6)
	for i := 0; i < 6; i++ {
		products = append(products, Membership{ProductID: string(rune('a' + i)), IndividualPrice: dec("10"), BundlePrice: dec("10")})
	}
	m := ComputeMetrics(BuilderMembers(products), KindBuilder, 0)
	require.Equal(t, 25, m.SavingsPercentage)
	require.True(t, m.BundlePrice.Equal(dec("45")), "bundle %s", m.BundlePrice)
	require.Equal(t, 25, SavingsPercentage(m.IndividualPrice, m.BundlePrice))
}

func TestComputeMetricsEmpty(t *testing.T) {
	for _, kind := range []Kind{KindCurated, KindBuilder} {
		m := ComputeMetrics(nil, kind, 40)
		require.Equal(t, 0, m.TotalProducts)
		require.True(t, m.IndividualPrice.IsZero())
		require.True(t, m.BundlePrice.IsZero())
		require.True(t, m.SavingsAmount.IsZero())
		require.Equal(t, 0, m.SavingsPercentage)
	}
}

func TestComputeMetricsAdditivity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		n := rng.Intn(10)
		members := make([]Membership, 0, n)
		var wantInd, wantBundle float64
		for i := 0; i < n; i++ {
			ind := float64(rng.Intn(100000)) / 100
			bun := ind * rng.Float64()
			wantInd += ind
			wantBundle += bun
			members = append(members, Membership{
				ProductID:       string(rune('a' + i)),
				IndividualPrice: decimal.NewFromFloat(ind),
				BundlePrice:     decimal.NewFromFloat(bun),
			})
		}
		m := ComputeMetrics(members, KindCurated, 0)
		require.InDelta(t, wantInd, m.IndividualPrice.InexactFloat64(), 1e-6)
		require.InDelta(t, wantBundle, m.BundlePrice.InexactFloat64(), 1e-6)
		require.True(t, m.SavingsAmount.Equal(m.IndividualPrice.Sub(m.BundlePrice)))
	}
}

func TestDiscountTierBoundaries(t *testing.T) {
	cases := map[int]int{
		-1: 0, 0: 0, 1: 0,
		2: 15, 3: 20, 4: 20,
		5: 25, 6: 25, 7: 30, 10: 30,
	}
	for count, want := range cases {
		require.Equalf(t, want, DiscountTier(count), "count %d", count)
	}
}

func TestDiscountTierMonotonic(t *testing.T) {
	for n1 := -2; n1 < 20; n1++ {
		for n2 := n1 + 1; n2 <= 20; n2++ {
			require.LessOrEqualf(t, DiscountTier(n1), DiscountTier(n2), "tier(%d) > tier(%d)", n1, n2)
		}
	}
}

func TestAnnualPrice(t *testing.T) {
	require.True(t, AnnualPrice(dec("100")).Equal(dec("1080")))
	require.True(t, AnnualPrice(dec("23")).Equal(dec("248.4")))
	require.True(t, AnnualPrice(decimal.Zero).IsZero())
}

func TestNewMembershipRejectsNegative(t *testing.T) {
	_, err := NewMembership("a", dec("-1"), dec("0"))
	require.ErrorIs(t, err, ErrInvalidPrice)
	_, err = NewMembership("a", dec("1"), dec("-0.01"))
	require.ErrorIs(t, err, ErrInvalidPrice)
	m, err := NewMembership("a", dec("10"), dec("8"))
	require.NoError(t, err)
	require.Equal(t, "a", m.ProductID)
}

func TestFromFloat(t *testing.T) {
	for _, bad := range []float64{-0.5, math.NaN(), math.Inf(1)} {
		_, err := FromFloat(bad)
		require.ErrorIs(t, err, ErrInvalidPrice)
	}
	v, err := FromFloat(12.5)
	require.NoError(t, err)
	require.True(t, v.Equal(dec("12.5")))
}

func TestLineSavings(t *testing.T) {
	lines := LineSavings([]Membership{
		{ProductID: "a", IndividualPrice: dec("80"), BundlePrice: dec("60")},
		{ProductID: "free", IndividualPrice: decimal.Zero, BundlePrice: decimal.Zero},
	})
	require.Len(t, lines, 2)
	require.Equal(t, 25, lines[0].Percentage)
	require.True(t, lines[0].Amount.Equal(dec("20")))
	require.Equal(t, 0, lines[1].Percentage)
}

func TestAllocateAddsUpToTotal(t *testing.T) {
	members := []Membership{
		{ProductID: "a", IndividualPrice: dec("10"), BundlePrice: dec("10")},
		{ProductID: "b", IndividualPrice: dec("10"), BundlePrice: dec("10")},
		{ProductID: "c", IndividualPrice: dec("10"), BundlePrice: dec("10")},
	}
	allocs := Allocate(members, dec("100"))
	require.Len(t, allocs, 3)
	sum := decimal.Zero
	for _, a := range allocs {
		sum = sum.Add(a.Amount)
	}
	require.True(t, sum.Equal(dec("100")), "sum %s", sum)
	require.True(t, allocs[0].Amount.Equal(dec("33.33")))
	require.True(t, allocs[2].Amount.Equal(dec("33.34")))
	require.Nil(t, Allocate(nil, dec("5")))
}

func TestActiveMembersKeepsOrder(t *testing.T) {
	members := []Membership{{ProductID: "a"}, {ProductID: "b"}, {ProductID: "c"}}
	active := ActiveMembers(members, NewSelection("c", "a"))
	require.Len(t, active, 2)
	require.Equal(t, "a", active[0].ProductID)
	require.Equal(t, "c", active[1].ProductID)
}
