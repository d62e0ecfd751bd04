package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	MaxSymbolLength      = 20
	MaxAssetTypeLength   = 32
	MaxNameLength        = 255
	MaxDescriptionLength = 1024
)

var (
	symbolRegex        = regexp.MustCompile(`^[A-Z0-9.\-]+$`)
	financialYearRegex = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateSymbol checks an instrument symbol: non-empty, bounded, uppercase
// alphanumeric with dots and hyphens.
func ValidateSymbol(s string) error {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, "symbol"); err != nil {
		return err
	}
	if err := ValidateStringMaxLength(trimmed, MaxSymbolLength, "symbol"); err != nil {
		return err
	}
	if !symbolRegex.MatchString(trimmed) {
		return fmt.Errorf("%w: symbol ('%s') is not in the expected format (uppercase letters, digits, '.', '-')", ErrValidationFailed, s)
	}
	return nil
}

// ValidateFinancialYear checks the "YYYY-YY" form used for tax years, e.g. "2024-25".
func ValidateFinancialYear(s string) error {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, "financial year"); err != nil {
		return err
	}
	if !financialYearRegex.MatchString(trimmed) {
		return fmt.Errorf("%w: financial year ('%s') is not in the expected format (YYYY-YY)", ErrValidationFailed, s)
	}
	return nil
}

// ValidatePositiveAmount checks that a decimal amount is strictly positive.
func ValidatePositiveAmount(d decimal.Decimal, fieldName string) error {
	if !d.IsPositive() {
		return fmt.Errorf("%w: %s must be positive", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateNonNegativeAmount checks that a decimal amount is zero or more.
func ValidateNonNegativeAmount(d decimal.Decimal, fieldName string) error {
	if d.IsNegative() {
		return fmt.Errorf("%w: %s cannot be negative", ErrValidationFailed, fieldName)
	}
	return nil
}
