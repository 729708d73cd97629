// Package normalize canonicalizes user-entered strings before they are
// validated or stored.
package normalize

import (
	"strings"
	"unicode"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses internal runs of
// whitespace to a single space. Case is preserved.
func Name(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// Text trims surrounding whitespace from free-form input such as an
// expense description. Internal spacing is left alone.
func Text(s string) string {
	return strings.TrimSpace(s)
}
