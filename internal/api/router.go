package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/proofpick/proofpick/internal/api/middleware"
	"github.com/proofpick/proofpick/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	// Client-facing selection endpoints
	GetSelection    http.HandlerFunc
	SelectionByCode http.HandlerFunc
	UpdateSelection http.HandlerFunc

	// Admin selection management
	CreateSelection http.HandlerFunc
	ListSelections  http.HandlerFunc
	DeleteSelection http.HandlerFunc

	// Archive downloads
	StartDownload http.HandlerFunc
	SyncDownload  http.HandlerFunc
	JobStatus     http.HandlerFunc
	ServeArchive  http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Client routes: reachable with a project link or access code, no auth.
	r.Get("/api/v1/selections/code/{accessCode}", orNotImplemented(deps.SelectionByCode))
	r.Get("/api/v1/selections/{selectionID}", orNotImplemented(deps.GetSelection))
	r.Patch("/api/v1/selections/{selectionID}", orNotImplemented(deps.UpdateSelection))

	// Download starts are rate limited per client IP; polling and archive
	// fetches are not.
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.Limit)
		r.Post("/api/v1/selections/{selectionID}/download", orNotImplemented(deps.StartDownload))
		r.Get("/api/v1/selections/{selectionID}/download/archive", orNotImplemented(deps.SyncDownload))
	})
	r.Get("/api/v1/downloads/{jobID}", orNotImplemented(deps.JobStatus))
	r.Get("/api/v1/downloads/{jobID}/archive", orNotImplemented(deps.ServeArchive))

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.RequireAdmin)

		r.Post("/api/v1/admin/selections", orNotImplemented(deps.CreateSelection))
		r.Get("/api/v1/admin/selections", orNotImplemented(deps.ListSelections))
		r.Delete("/api/v1/admin/selections/{selectionID}", orNotImplemented(deps.DeleteSelection))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
