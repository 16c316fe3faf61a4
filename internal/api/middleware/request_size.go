package middleware

import (
	"net/http"
)

// DefaultMaxBodySize bounds JSON request bodies. Profile and event payloads
// are small; 1MB leaves room for long descriptions.
const DefaultMaxBodySize int64 = 1 << 20

// RequestSize caps the request body at maxBytes. Reads past the cap fail with
// *http.MaxBytesError, which handlers report as 413.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
