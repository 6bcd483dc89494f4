// Package app wires configuration, adapters and handlers into the server.
package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/ai-interview-trainer/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-trainer/internal/config"
)

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	// Security & instrumentation middleware
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   httpserver.ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// JSON endpoints; the optional request timeout only applies here.
	r.Group(func(jr chi.Router) {
		jr.Use(httpserver.TimeoutMiddleware(cfg.RequestTimeout))
		jr.Post("/v1/questions", srv.QuestionsHandler())
		jr.Post("/v1/evaluations", srv.EvaluationsHandler())
	})
	// Speech endpoints stream and must flush or hijack the connection.
	r.Post("/v1/transcriptions", srv.TranscriptionsHandler())
	r.Get("/v1/transcriptions/realtime", srv.RealtimeHandler())
	r.Post("/v1/speech", srv.SpeechHandler())

	// Health and metrics
	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return httpserver.SecurityHeaders(r)
}
