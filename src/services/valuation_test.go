package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValuate(t *testing.T) {
	tests := []struct {
		name          string
		quantity      string
		totalInvested string
		currentPrice  string
		wantValue     string
		wantPnl       string
		wantPnlPct    string
	}{
		{
			name:     "gain",
			quantity: "10", totalInvested: "1000", currentPrice: "120",
			wantValue: "1200", wantPnl: "200", wantPnlPct: "20",
		},
		{
			name:     "loss",
			quantity: "10", totalInvested: "1000", currentPrice: "80",
			wantValue: "800", wantPnl: "-200", wantPnlPct: "-20",
		},
		{
			name:     "flat",
			quantity: "10", totalInvested: "1000", currentPrice: "100",
			wantValue: "1000", wantPnl: "0", wantPnlPct: "0",
		},
		{
			name:     "zero price",
			quantity: "10", totalInvested: "1000", currentPrice: "0",
			wantValue: "0", wantPnl: "-1000", wantPnlPct: "-100",
		},
		{
			name:     "zero invested yields zero percentage",
			quantity: "10", totalInvested: "0", currentPrice: "50",
			wantValue: "500", wantPnl: "500", wantPnlPct: "0",
		},
		{
			name:     "fractional quantity",
			quantity: "2.5", totalInvested: "250", currentPrice: "110",
			wantValue: "275", wantPnl: "25", wantPnlPct: "10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Valuate(d(tt.quantity), d(tt.totalInvested), d(tt.currentPrice))

			assert.True(t, d(tt.wantValue).Equal(v.CurrentValue), "CurrentValue = %s", v.CurrentValue)
			assert.True(t, d(tt.wantPnl).Equal(v.UnrealizedPnl), "UnrealizedPnl = %s", v.UnrealizedPnl)
			assert.True(t, d(tt.wantPnlPct).Equal(v.UnrealizedPnlPercentage), "UnrealizedPnlPercentage = %s", v.UnrealizedPnlPercentage)
		})
	}
}

func TestValuateRoundsRatioBeforeScaling(t *testing.T) {
	// pnl/invested = 100/30000 = 0.00333... rounds to 0.0033 at four
	// decimal places, so the percentage is exactly 0.33.
	v := Valuate(d("3"), d("30000"), d("10033.333333"))

	assert.True(t, d("0.33").Equal(v.UnrealizedPnlPercentage),
		"UnrealizedPnlPercentage = %s", v.UnrealizedPnlPercentage)
}

func TestValuateIsPure(t *testing.T) {
	q, inv, p := d("10"), d("1000"), d("120")

	first := Valuate(q, inv, p)
	second := Valuate(q, inv, p)

	assert.True(t, first.CurrentValue.Equal(second.CurrentValue))
	assert.True(t, first.UnrealizedPnl.Equal(second.UnrealizedPnl))
	assert.True(t, first.UnrealizedPnlPercentage.Equal(second.UnrealizedPnlPercentage))
}
