// Package app wires configuration, adapters, and use cases into runnable
// server and worker processes: the HTTP router, readiness checks, the
// ingestion scheduler, and the stuck job sweeper.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/freight-price-movement-agent/internal/adapter/httpserver"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/config"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/observability"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{"*"}
	}
	if s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	// Security & instrumentation middleware
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(30 * time.Second))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rate limit mutating endpoints
	r.Group(func(wr chi.Router) {
		wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
		wr.Post("/v1/sources", srv.CreateSourceHandler())
		wr.Put("/v1/sources/{id}", srv.UpdateSourceHandler())
		wr.Delete("/v1/sources/{id}", srv.DeleteSourceHandler())
		wr.Post("/v1/sources/{id}/activate", srv.ActivateSourceHandler())
		wr.Post("/v1/sources/{id}/deactivate", srv.DeactivateSourceHandler())
		wr.Post("/v1/sources/{id}/test", srv.TestSourceHandler())
		wr.Post("/v1/sources/{id}/ingest", srv.IngestHandler())
		wr.Post("/v1/sources/{id}/preview", srv.PreviewHandler())
		wr.Post("/v1/sources/{id}/schedule", srv.ScheduleHandler())
		wr.Delete("/v1/sources/{id}/schedule", srv.CancelScheduleHandler())
		wr.Post("/v1/analysis", srv.AnalyzeHandler())
	})
	// Read-only endpoints
	r.Get("/v1/sources", srv.ListSourcesHandler())
	r.Get("/v1/sources/{id}", srv.GetSourceHandler())
	r.Get("/v1/sources/{id}/logs", srv.SourceLogsHandler())
	r.Get("/v1/jobs", srv.ListJobsHandler())
	r.Get("/v1/jobs/{id}", srv.GetJobHandler())
	r.Get("/v1/analysis/{id}", srv.GetAnalysisHandler())

	// Health and metrics
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })
	r.Get("/readyz", srv.ReadyzHandler())

	return httpserver.SecurityHeaders(r)
}
