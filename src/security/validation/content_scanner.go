package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/username/finassist/backend/src/logger"
)

var (
	// Common XSS vectors. Output encoding remains the primary defense, this
	// keeps obviously hostile strings out of the database.
	xssPatternsRegex = regexp.MustCompile(
		`(?i)<script|onerror=|onmouseover=|onfocus=|onload=|javascript:|vbscript:|<iframe|<object|<embed|<style|<link|<img\s+src\s*=\s*['"]?\s*(javascript|data):`,
	)
	// Characters that trigger formula evaluation when a cell is later opened
	// in a spreadsheet.
	formulaInjectionPrefixRegex = regexp.MustCompile(`^[=+\-@\t\r]`)
)

func truncateForLog(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

// CheckXSSPatterns rejects strings containing basic XSS payloads.
func CheckXSSPatterns(s, fieldName, contextID string) error {
	if xssPatternsRegex.MatchString(s) {
		errMsg := fmt.Sprintf("potential XSS pattern detected in field '%s'", fieldName)
		logger.L.Warn(errMsg, "contextID", contextID, "contentPreview", truncateForLog(s, 50))
		return fmt.Errorf("%w: %s", ErrValidationFailed, errMsg)
	}
	return nil
}

// CheckFormulaInjection rejects strings starting with spreadsheet formula
// trigger characters. Formula injection relies on the prefix, so only the
// first few characters need checking.
func CheckFormulaInjection(s, fieldName, contextID string) error {
	prefixToCheck := s
	if len(s) > 10 {
		prefixToCheck = s[:10]
	}
	if formulaInjectionPrefixRegex.MatchString(strings.TrimSpace(prefixToCheck)) {
		errMsg := fmt.Sprintf("potential formula injection pattern detected in field '%s'", fieldName)
		logger.L.Warn(errMsg, "contextID", contextID, "contentPreview", truncateForLog(s, 50))
		return fmt.Errorf("%w: %s", ErrValidationFailed, errMsg)
	}
	return nil
}
