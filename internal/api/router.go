package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"profilehub/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		r.Route("/users", func(r chi.Router) {
			// Session endpoints (no bearer token — refresh and logout
			// authenticate via the session cookie)
			r.Post("/register", s.handleRegister)
			r.Post("/auth", s.handleLogin)
			r.Get("/refresh", s.handleRefresh)
			r.Get("/logout", s.handleLogout)

			// Authenticated routes
			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)

				r.Route("/profiles", func(r chi.Router) {
					r.Get("/", s.handleListPublicProfiles)
					r.Get("/admins", s.handleListAdminProfiles)
					r.Get("/users", s.handleListMemberProfiles)

					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", s.handleGetProfile)
						r.Patch("/", s.handleUpdateProfile)
						r.Patch("/visibility", s.handleToggleVisibility)
						r.Patch("/admin", s.handleGrantAdmin)
					})
				})

				// Admin-only routes
				r.Route("/admin", func(r chi.Router) {
					r.Use(s.requireRole(auth.RoleAdmin))

					r.Get("/", s.handleListAllProfiles)
					r.Get("/audit", s.handleListAuditEntries)
				})
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
