package auth

import (
	"crypto/subtle"
	"net/http"
)

// AdminKeyHeader carries the process-wide admin secret on key-lifecycle
// requests, separate from the caller's own bearer credential.
const AdminKeyHeader = "X-Admin-Key"

// RequireAdminKey gates key-lifecycle endpoints behind the process-wide
// admin secret loaded from configuration, on top of the caller's own
// admin permission. An empty adminKey disables the endpoints entirely
// rather than falling open.
func RequireAdminKey(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" {
				writeServiceUnavailable(w, "key-lifecycle endpoints are disabled: no admin key configured")
				return
			}
			presented := r.Header.Get(AdminKeyHeader)
			if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(adminKey)) != 1 {
				writeUnauthorized(w, "missing or incorrect admin key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
