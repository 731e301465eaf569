package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"taxpilot/pkg/platform/middleware/metadata"
	"taxpilot/pkg/platform/middleware/requestid"
	"taxpilot/pkg/platform/middleware/requesttime"
)

// NewRouter builds the public router: correlation and request-time middleware
// first, then the compliance endpoints and the health check. The /metrics
// endpoint is mounted by the caller so the transport stays free of the
// metrics registry.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	h.Register(r)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}
