// internal/app/features/errors/render.go
package errors

import (
	"net/http"
)

// RenderUnauthorized shows a "sign in required" page.
// If backURL is empty, it will default to /login.
func RenderUnauthorized(w http.ResponseWriter, r *http.Request, backURL string) {
	if backURL == "" {
		backURL = "/login"
	}
	render(w, r, http.StatusUnauthorized, newPage(r, "Sign in required", "Please sign in to continue.", backURL))
}

// RenderForbidden shows an access error page with a message.
func RenderForbidden(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	if backURL == "" {
		backURL = "/"
	}
	render(w, r, http.StatusForbidden, newPage(r, "Access denied", msg, backURL))
}

// RenderServerError shows a retryable failure page. Used when a read page
// cannot load its data.
func RenderServerError(w http.ResponseWriter, r *http.Request, backURL string) {
	if backURL == "" {
		backURL = "/"
	}
	render(w, r, http.StatusInternalServerError,
		newPage(r, "Something went wrong", "Something went wrong. Please try again.", backURL))
}

// CSRFFailed answers a forged or stale form post. No page, no flash.
func CSRFFailed(w http.ResponseWriter) {
	http.Error(w, "Invalid CSRF token.", http.StatusForbidden)
}
