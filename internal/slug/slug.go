// Package slug turns thread titles into URL path segments.
package slug

import (
	"strings"
	"unicode"
)

func isQuote(r rune) bool {
	return r == '\'' || r == '"'
}

// Make lowercases title and joins its alphanumeric runs with hyphens.
// Quote characters are dropped rather than treated as separators, so
// "Don't panic" becomes "dont-panic".
func Make(title string) string {
	fields := strings.FieldsFunc(title, func(r rune) bool {
		return !(isQuote(r) || unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Map(func(r rune) rune {
			if isQuote(r) {
				return -1
			}
			return unicode.ToLower(r)
		}, f)
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, "-")
}
