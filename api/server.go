/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/*        JSON API (see handlers.go)
  /health       Liveness, plus a store ping when one is configured
  /metrics      Prometheus exposition, when a gatherer is configured
  /photos/*     Stored photos, when the filesystem photo driver is used

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions enables the optional non-API routes.
type RouterOptions struct {
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer         // nil disables /metrics
	PhotoRoot      string                      // "" disables /photos
	Ping           func(context.Context) error // nil reports only liveness
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "Content-Disposition"},
		AllowCredentials: false,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/initial-data", h.GetInitialData)

		// Catalog routes
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", h.GetCatalog)
			r.Post("/", h.AddCatalogItem)
			r.Get("/grouped", h.GetCatalogGrouped)
			r.Get("/units", h.GetAvailableUnits)
			r.Post("/merge", h.MergeDuplicates)
		})

		// Directory routes
		r.Route("/persons", func(r chi.Router) {
			r.Get("/", h.ListPersons)
			r.Post("/", h.AddPerson)
		})

		// Operation routes
		r.Post("/checkout", h.CheckoutBatch)
		r.Route("/returns", func(r chi.Router) {
			r.Post("/", h.ReturnBatch)
			r.Post("/{id}", h.ReturnOne)
		})
		r.Route("/damage", func(r chi.Router) {
			r.Get("/", h.GetDamageReport)
			r.Post("/", h.ReportDamage)
		})

		// Report routes
		r.Get("/log", h.GetLog)
		r.Get("/log.xlsx", h.ExportLog)
		r.Get("/summary", h.GetSummary)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/import-legacy", h.ImportLegacy)
		})

		// Scenario routes (demo)
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := opts.Ping(ctx); err != nil {
				writeError(w, http.StatusServiceUnavailable, "Store unreachable", err)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
	})

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	if opts.PhotoRoot != "" {
		r.Handle("/photos/*", http.StripPrefix("/photos/", http.FileServer(http.Dir(opts.PhotoRoot))))
	}

	return r
}
