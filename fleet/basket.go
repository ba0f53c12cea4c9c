package fleet

import "github.com/shopspring/decimal"

// basketTier maps a basket-count range to suggested revenue and driver share.
type basketTier struct {
	minCount int
	revenue  int64
	share    int64
}

// Tiers are checked top-down; first match wins.
var basketTiers = []basketTier{
	{minCount: 101, revenue: 1000, share: 700},
	{minCount: 91, revenue: 600, share: 400},
	{minCount: 86, revenue: 300, share: 200},
}

// BasketTier derives the suggested (basket revenue, basketShare) for a
// basket unit count. This is a one-way suggestion applied at data-entry
// time; it does not re-run during normalization, and an operator may
// override the suggested values before saving.
func BasketTier(count int) (basket, share decimal.Decimal) {
	for _, tier := range basketTiers {
		if count >= tier.minCount {
			return decimal.NewFromInt(tier.revenue), decimal.NewFromInt(tier.share)
		}
	}
	return decimal.Zero, decimal.Zero
}
