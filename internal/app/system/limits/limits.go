// internal/app/system/limits/limits.go
package limits

import "net/http"

// Request body size limits. Every page in the app posts small url-encoded
// forms, so anything larger is rejected before ParseForm buffers it.
const (
	// MaxFormSize caps a single form submission.
	MaxFormSize = 64 << 10 // 64 KB
)

// FormBody caps the body of state-changing requests at n bytes.
// ParseForm fails once the cap is exceeded, which the handlers
// treat like any other malformed form.
func FormBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Method != http.MethodGet && r.Method != http.MethodHead {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
