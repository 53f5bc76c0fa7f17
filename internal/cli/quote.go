package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-langganan/internal/pricing"
)

type quoteOutput struct {
	pricing.Metrics
	AnnualPrice decimal.Decimal      `json:"annualPrice"`
	Lines       []pricing.LineSaving `json:"lines"`
}

func newQuoteCmd() *cobra.Command {
	var items []string
	var builder bool
	var savings int
	cmd := &cobra.Command{
		Use:   "quote --item id=individual:bundle ...",
		Short: "Price a bundle offline",
		Example: "  langganan-ctl quote --item quickbooks=10:8 --item xero=20:15 --savings 22\n" +
			"  langganan-ctl quote --builder --item a=10:10 --item b=20:20",
		RunE: func(cmd *cobra.Command, _ []string) error {
			members := make([]pricing.Membership, 0, len(items))
			for _, item := range items {
				m, err := parseItem(item)
				if err != nil {
					return err
				}
				members = append(members, m)
			}
			kind := pricing.KindCurated
			if builder {
				kind = pricing.KindBuilder
				members = pricing.BuilderMembers(members)
			}
			metrics := pricing.ComputeMetrics(members, kind, savings)
			return printJSON(cmd.OutOrStdout(), quoteOutput{
				Metrics:     metrics,
				AnnualPrice: pricing.AnnualPrice(metrics.BundlePrice).Round(2),
				Lines:       pricing.LineSavings(members),
			})
		},
	}
	cmd.Flags().StringArrayVar(&items, "item", nil, "product as id=individual:bundle (repeatable)")
	cmd.Flags().BoolVar(&builder, "builder", false, "price as a builder selection using the count tier")
	cmd.Flags().IntVar(&savings, "savings", 0, "declared savings percentage for curated bundles")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func parseItem(item string) (pricing.Membership, error) {
	id, prices, ok := strings.Cut(item, "=")
	if !ok || strings.TrimSpace(id) == "" {
		return pricing.Membership{}, fmt.Errorf("item %q: want id=individual:bundle", item)
	}
	individualRaw, bundleRaw, ok := strings.Cut(prices, ":")
	if !ok {
		bundleRaw = individualRaw
	}
	individual, err := decimal.NewFromString(strings.TrimSpace(individualRaw))
	if err != nil {
		return pricing.Membership{}, fmt.Errorf("item %q individual price: %w", item, err)
	}
	bundle, err := decimal.NewFromString(strings.TrimSpace(bundleRaw))
	if err != nil {
		return pricing.Membership{}, fmt.Errorf("item %q bundle price: %w", item, err)
	}
	return pricing.NewMembership(strings.TrimSpace(id), individual, bundle)
}
