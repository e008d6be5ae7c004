package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/naudiz/internal/valsvc"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *valsvc.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Manifests and their validation results.
	r.Get("/manifests", h.ListManifests)
	r.Get("/manifests/*", h.GetManifest)

	// Force a fresh validation pass.
	r.Post("/validate/*", h.ValidateManifest)

	// Remediation.
	r.Post("/install/*", h.Install)

	// Diagnostics search and workspace summary.
	r.Get("/search", h.Search)
	r.Get("/summary", h.Summary)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
