/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (phuslu/log)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the chart frontend

ROUTE GROUPS:
  /api/companies/*      Statements, charts and trends per company
  /api/import/*         Data directory import
  /api/scenarios/*      Demo datasets
  /api/reset            Store reset (dev only)

SECURITY NOTE:
  No authentication middleware. All endpoints are public and read-only
  except import, scenarios and reset.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phuslu/log"
)

// NewRouter creates a new router with all routes configured. origins lists
// the allowed CORS origins.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found", nil)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		// Company routes
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", h.ListCompanies)
			r.Route("/{code}", func(r chi.Router) {
				r.Get("/", h.GetCompany)
				r.Get("/periods/{statement}", h.ListPeriods)
				r.Get("/statements/{statement}", h.GetStatementTable)
				r.Get("/dashboard", h.GetDashboard)
				r.Get("/highlights", h.GetHighlights)

				r.Get("/pl/flow", h.GetPLFlow)
				r.Get("/pl/bridge", h.GetPLBridge)
				r.Get("/pl/segments", h.GetSegments)

				r.Get("/bs/blocks", h.GetBSBlocks)
				r.Get("/bs/changes", h.GetBSChanges)
				r.Get("/bs/drilldown", h.GetBSDrilldown)

				r.Get("/cf/flow", h.GetCFFlow)
				r.Get("/cf/bridge", h.GetCFBridge)
				r.Get("/cf/pattern", h.GetCFPattern)

				r.Get("/trend/derived/{kind}", h.GetDerivedTrend)
				r.Get("/trend/{statement}", h.GetTrend)
			})
		})

		// Import routes
		r.Route("/import", func(r chi.Router) {
			r.Post("/", h.TriggerImport)
			r.Get("/runs", h.ListImportRuns)
		r.Get("/schedule", h.GetImportSchedule)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})

		r.Post("/reset", h.ResetDatabase)
	})

	return r
}

// requestLogger logs one line per request with the global phuslu logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}
