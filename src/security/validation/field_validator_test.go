package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		ok     bool
	}{
		{"INFY", true},
		{"BRK.B", true},
		{"NIFTY-50", true},
		{" TCS ", true},
		{"", false},
		{"lowercase", false},
		{"HAS SPACE", false},
		{"WAY.TOO.LONG.SYMBOL.NAME.X", false},
		{"DROP;TABLE", false},
	}
	for _, tt := range tests {
		err := ValidateSymbol(tt.symbol)
		if tt.ok {
			assert.NoError(t, err, "symbol %q", tt.symbol)
		} else {
			assert.ErrorIs(t, err, ErrValidationFailed, "symbol %q", tt.symbol)
		}
	}
}

func TestValidateFinancialYear(t *testing.T) {
	assert.NoError(t, ValidateFinancialYear("2024-25"))
	assert.NoError(t, ValidateFinancialYear(" 2023-24 "))
	assert.ErrorIs(t, ValidateFinancialYear("2024"), ErrValidationFailed)
	assert.ErrorIs(t, ValidateFinancialYear("FY2024-25"), ErrValidationFailed)
	assert.ErrorIs(t, ValidateFinancialYear(""), ErrValidationFailed)
}

func TestValidateAmounts(t *testing.T) {
	assert.NoError(t, ValidatePositiveAmount(decimal.NewFromInt(1), "amount"))
	assert.ErrorIs(t, ValidatePositiveAmount(decimal.Zero, "amount"), ErrValidationFailed)
	assert.ErrorIs(t, ValidatePositiveAmount(decimal.NewFromInt(-1), "amount"), ErrValidationFailed)

	assert.NoError(t, ValidateNonNegativeAmount(decimal.Zero, "fees"))
	assert.ErrorIs(t, ValidateNonNegativeAmount(decimal.NewFromInt(-1), "fees"), ErrValidationFailed)
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "Rent", SanitizeText("<script>alert(1)</script>Rent"))
	assert.Equal(t, "monthly rent", SanitizeText("monthly <b>rent</b>"))
	assert.Equal(t, "plain note", SanitizeText("  plain note  "))
}

func TestCheckFormulaInjection(t *testing.T) {
	assert.ErrorIs(t, CheckFormulaInjection("=HYPERLINK(evil)", "name", "t"), ErrValidationFailed)
	assert.ErrorIs(t, CheckFormulaInjection("+1234", "name", "t"), ErrValidationFailed)
	assert.ErrorIs(t, CheckFormulaInjection("@cmd", "name", "t"), ErrValidationFailed)
	assert.NoError(t, CheckFormulaInjection("HDFC Bank", "name", "t"))
	assert.NoError(t, CheckFormulaInjection("", "name", "t"))
}

func TestCheckXSSPatterns(t *testing.T) {
	assert.ErrorIs(t, CheckXSSPatterns("<script>alert(1)</script>", "notes", "t"), ErrValidationFailed)
	assert.ErrorIs(t, CheckXSSPatterns("javascript:void(0)", "notes", "t"), ErrValidationFailed)
	assert.NoError(t, CheckXSSPatterns("bought on a dip", "notes", "t"))
}
