// Package csrf checks the per-session forgery token on state-changing
// requests. Tokens are the session's secret itself, compared in constant
// time; a page renders it into a hidden csrf_token field.
package csrf

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// FieldName is the form field carrying the token.
const FieldName = "csrf_token"

// HeaderName is consulted when the form field is absent.
const HeaderName = "X-CSRF-Token"

// ErrInvalidToken is returned for a missing secret, a missing token or a mismatch.
var ErrInvalidToken = errors.New("invalid csrf token")

// Validate compares the submitted token with the session secret.
func Validate(secret, submitted string) error {
	if secret == "" || submitted == "" {
		return ErrInvalidToken
	}
	if len(secret) != len(submitted) {
		return ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(submitted)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// TokenFromRequest reads the token from the parsed form, falling back to
// the request header.
func TokenFromRequest(r *http.Request) string {
	if tok := strings.TrimSpace(r.FormValue(FieldName)); tok != "" {
		return tok
	}
	return strings.TrimSpace(r.Header.Get(HeaderName))
}
