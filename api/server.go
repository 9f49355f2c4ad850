/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

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
  4. CORS:       Cross-origin requests for admin frontends

ROUTE GROUPS:
  /api/transitions/*   Validation
  /api/rules/*         Rule admin (get, update, reload)
  /api/entities/*      Audit and compliance history
  /api/transactions/*  Distributed transaction lookup
  /api/tasks/*         Demo task collaborator
  /metrics             Prometheus metrics

SECURITY NOTE:
  No authentication middleware. Authentication is an external concern for
  this subsystem; front it with a gateway in production.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Transition validation
		r.Post("/transitions/validate", h.ValidateTransition)

		// Registered entity types
		r.Get("/entity-types", h.ListEntityTypes)

		// Rule admin
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.ListRules)
			r.Post("/reload", h.ReloadRules)
			r.Get("/{entityType}", h.GetRules)
			r.Put("/{entityType}", h.UpdateRules)
			r.Get("/{entityType}/transitions", h.GetAvailableTransitions)
		})

		// Audit and compliance history
		r.Route("/entities/{type}/{id}", func(r chi.Router) {
			r.Get("/transactions", h.GetEntityTransactions)
			r.Get("/compliance", h.GetComplianceRecords)
		})
		r.Get("/transactions/{id}", h.GetTransaction)
		r.Get("/actors/{id}/transactions", h.GetActorTransactions)

		// Compliance recording
		r.Post("/compliance", h.LogComplianceCheck)

		// Demo task collaborator
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", h.CreateTask)
			r.Get("/{id}", h.GetTask)
			r.Post("/{id}/transition", h.TransitionTask)
			r.Post("/{id}/complete", h.CompleteTaskWithFollowUp)
		})
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	return r
}
