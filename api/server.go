/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend
  5. Role gate:  Mutating routes require the editor role

ROLE MODEL:
  Callers arrive authenticated; the upstream gateway stamps X-Role with
  "viewer" or "editor". Viewers get the full read surface; every write
  goes through requireEditor. Missing header defaults to viewer.

ROUTE GROUPS:
  /api/projects/*       Projects and their billing periods
  /api/categories       Expense category list
  /api/admin/*          Staff, assignments, rates, content, reset

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/finance-engine/finance"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Role"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Project routes
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.With(requireEditor).Post("/", h.CreateProject)
			r.Get("/{id}", h.GetProject)

			// Period routes
			r.Route("/{id}/periods", func(r chi.Router) {
				r.Get("/", h.ListPeriods)
				r.Get("/{month}", h.GetPeriod)

				// View lifecycle drives the auto-sync scheduler; open to
				// viewers since viewing is what it tracks.
				r.Post("/{month}/view/open", h.OpenPeriodView)
				r.Post("/{month}/view/close", h.ClosePeriodView)

				// Mutations
				r.Group(func(r chi.Router) {
					r.Use(requireEditor)
					r.Post("/{month}/sync", h.SyncPeriod)
					r.Put("/{month}/fields", h.UpdateField)
					r.Put("/{month}/services/{serviceID}", h.UpdateServiceLine)
					r.Post("/{month}/freeze", h.SetFrozen)
					r.Post("/{month}/copy-previous", h.CopyPreviousPeriod)
				})
			})
		})

		// Category routes
		r.Get("/categories", h.ListCategories)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireEditor)
			r.Post("/staff", h.SaveStaff)
			r.Post("/assignments", h.SaveAssignment)
			r.Post("/rates", h.SaveRate)
			r.Post("/rate-card", h.UploadRateCard)
			r.Post("/rules", h.ConfigureRules)
			r.Post("/content", h.AddContentItem)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// requireEditor rejects mutating requests from viewer-role callers.
func requireEditor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := finance.Role(r.Header.Get("X-Role"))
		if role == "" {
			role = finance.RoleViewer
		}
		if !role.CanEdit() {
			writeError(w, finance.ErrEditNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
