// Package requesttime pins a single "now" per HTTP request so every
// timestamp written while handling it (state transitions, audit events,
// validation outcomes) agrees.
package requesttime

import (
	"net/http"
	"time"

	"taxpilot/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request and
// stores it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
