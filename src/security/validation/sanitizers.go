package validation

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strictHTMLPolicy *bluemonday.Policy

func init() {
	// Strict policy removes all HTML tags and attributes.
	strictHTMLPolicy = bluemonday.StrictPolicy()
}

// SanitizeText strips all HTML from a free-text input (names, notes,
// descriptions) before it reaches the database.
func SanitizeText(s string) string {
	return strings.TrimSpace(strictHTMLPolicy.Sanitize(s))
}

// StripUnprintable removes non-printable characters, allowing common
// whitespace like space, tab, newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}
