package service

import (
	"github.com/kopitiam-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// tierThreshold maps a lifetime-spend floor to the tier it unlocks.
// Thresholds are evaluated highest first; spend below the lowest one is
// REGULAR.
type tierThreshold struct {
	minSpend decimal.Decimal
	tier     string
}

var tierThresholds = []tierThreshold{
	{decimal.NewFromInt(10000), enum.TierElite},
	{decimal.NewFromInt(5000), enum.TierDiamond},
	{decimal.NewFromInt(2000), enum.TierPlatinum},
	{decimal.NewFromInt(1000), enum.TierGold},
	{decimal.NewFromInt(500), enum.TierSilver},
	{decimal.NewFromInt(200), enum.TierBronze},
}

// TierForSpend returns the loyalty tier earned by a lifetime spend total.
// Tiers move in both directions: a refund that drops total_spent below a
// threshold demotes the customer on the next recompute.
func TierForSpend(totalSpent decimal.Decimal) string {
	for _, t := range tierThresholds {
		if totalSpent.GreaterThanOrEqual(t.minSpend) {
			return t.tier
		}
	}
	return enum.TierRegular
}

// PointsEarned converts an order subtotal to loyalty points at the given earn
// rate, rounding down. The result is snapshotted on the order row so a later
// rate change never alters what a refund must reverse.
func PointsEarned(subtotal decimal.Decimal, earnRate decimal.Decimal) int64 {
	return subtotal.Mul(earnRate).Floor().IntPart()
}
