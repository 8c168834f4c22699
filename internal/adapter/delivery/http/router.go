// Package http provides the HTTP delivery layer of the shortener: the public
// shorten and redirect endpoints, the health probe, the management API under
// /api/v1 and the operational routes for metrics and API docs.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/vadimbarashkov/shortlink/pkg/middleware/recoverer"
)

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the shortener.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase, codes codeValidator) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger, serverErrorResponse))

	h := newURLHandler(urlUseCase, codes, validator.New())

	r.Get("/health", h.health)
	r.Post("/shorten", h.shorten)
	r.Get("/{shortCode}", h.redirect)

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger.yml")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)

		r.Route("/shorten", func(r chi.Router) {
			r.Post("/", h.shortenURL)

			r.Route("/{shortCode}", func(r chi.Router) {
				r.Put("/", h.modifyURL)
				r.Delete("/", h.deactivateURL)
				r.Get("/stats", h.getURLStats)
			})
		})
	})

	return r
}
