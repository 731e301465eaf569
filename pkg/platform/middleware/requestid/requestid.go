// Package requestid assigns every request a correlation ID. Inbound
// X-Request-ID headers are honored so IDs propagate across services; the ID
// is echoed back on the response.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"taxpilot/pkg/requestcontext"
)

const Header = "X-Request-ID"

// Middleware stores the request ID in the context and response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(Header, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
