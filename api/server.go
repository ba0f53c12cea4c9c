/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/trips/*       Trip ledger CRUD
  /api/period/*      Billing window selection and views
  /api/payslips/*    Payroll slips
  /api/deductions/*  CN deduction book
  /api/presets/*     Route presets
  /api/stats/*       Yearly aggregates
  /api/export/*      CSV export
  /api/status        Backend mode

SECURITY NOTE:
  No authentication middleware. This runs on the operator's own machine
  or a private network; all endpoints are public.

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
		// Trip ledger
		r.Route("/trips", func(r chi.Router) {
			r.Get("/", h.ListTrips)
			r.Post("/", h.CreateTrip)
			r.Put("/{id}", h.UpdateTrip)
			r.Delete("/{id}", h.DeleteTrip)
		})

		// Billing window
		r.Route("/period", func(r chi.Router) {
			r.Get("/", h.GetPeriod)
			r.Put("/", h.SelectPeriod)
			r.Post("/shift", h.ShiftPeriod)
			r.Get("/trips", h.ListPeriodTrips)
			r.Get("/stats", h.GetPeriodStats)
			r.Get("/days", h.ListDays)
			r.Get("/days/{date}", h.GetDay)
		})

		// Payroll
		r.Route("/payslips", func(r chi.Router) {
			r.Get("/", h.ListPayslips)
			r.Get("/{driver}", h.GetPayslip)
		})
		r.Route("/deductions", func(r chi.Router) {
			r.Get("/", h.ListDeductions)
			r.Put("/{driver}", h.SetDeduction)
		})

		// Route presets
		r.Route("/presets", func(r chi.Router) {
			r.Get("/", h.ListPresets)
			r.Delete("/{route}", h.DeletePreset)
		})

		// Aggregates and export
		r.Get("/stats/yearly", h.GetYearlyStats)
		r.Get("/export/csv", h.ExportCSV)
		r.Get("/status", h.GetStatus)

		// Demo data
		r.Post("/demo/seed", h.SeedDemo)
	})

	return r
}
