package models

// Decimal scales used across the computation core. Money values are stored
// and reported with 2 fractional digits, intermediate ratios with 4. All
// rounding is half-up (decimal.Decimal.Round, half away from zero, which is
// equivalent for the non-negative bases used here).
const (
	MoneyScale = 2
	RatioScale = 4
)
