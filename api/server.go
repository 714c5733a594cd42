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

ROUTE GROUPS:
  /api/clients/*        Client management
  /api/engagements/*    Engagement management
  /api/timelogs/*       Time log entry
  /api/invoices/*       Invoice generation and lifecycle
  /api/dashboard        Year summary

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
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
		// Client routes
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
			r.Get("/{id}", h.GetClient)
			r.Put("/{id}", h.UpdateClient)
			r.Delete("/{id}", h.DeleteClient)
		})

		// Engagement routes
		r.Route("/engagements", func(r chi.Router) {
			r.Get("/", h.ListEngagements)
			r.Post("/", h.CreateEngagement)
			r.Get("/{id}", h.GetEngagement)
			r.Put("/{id}", h.UpdateEngagement)
			r.Delete("/{id}", h.DeleteEngagement)
		})

		// Time log routes
		r.Route("/timelogs", func(r chi.Router) {
			r.Get("/", h.ListTimeLogs)
			r.Post("/", h.CreateTimeLog)
			r.Put("/{id}", h.UpdateTimeLog)
			r.Delete("/{id}", h.DeleteTimeLog)
		})

		// Invoice routes
		r.Route("/invoices", func(r chi.Router) {
			r.Post("/generate", h.GenerateInvoice)
			r.Get("/", h.ListInvoices)
			r.Get("/{id}", h.GetInvoice)
			r.Post("/{id}/status", h.UpdateInvoiceStatus)
			r.Delete("/{id}", h.DeleteInvoice)
		})

		// Dashboard
		r.Get("/dashboard", h.Dashboard)
	})

	return r
}
