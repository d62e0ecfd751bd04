package services

import (
	"github.com/shopspring/decimal"

	"github.com/username/finassist/backend/src/models"
)

// Valuation holds the market-dependent figures for a position.
type Valuation struct {
	CurrentValue            decimal.Decimal
	UnrealizedPnl           decimal.Decimal
	UnrealizedPnlPercentage decimal.Decimal
}

// Valuate computes the current value and unrealized P/L of a position from
// its quantity, cost basis, and a market price. It is pure and has no error
// conditions; a zero price is valid and yields a zero current value.
//
// The percentage is the pnl/invested ratio rounded to RatioScale digits and
// only then multiplied by 100. Rounding the ratio before scaling is required
// for bit-exact parity with stored historical values, so do not reorder.
func Valuate(quantity, totalInvested, currentPrice decimal.Decimal) Valuation {
	currentValue := quantity.Mul(currentPrice)
	unrealizedPnl := currentValue.Sub(totalInvested)

	pnlPercentage := decimal.Zero
	if totalInvested.IsPositive() {
		ratio := unrealizedPnl.DivRound(totalInvested, models.RatioScale)
		pnlPercentage = ratio.Mul(decimal.NewFromInt(100))
	}

	return Valuation{
		CurrentValue:            currentValue,
		UnrealizedPnl:           unrealizedPnl,
		UnrealizedPnlPercentage: pnlPercentage,
	}
}
