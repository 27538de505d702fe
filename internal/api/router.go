// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api wires the Query API: a small chi router exposing the
// health check, the paginated event list, the SSE event stream, and the
// OpenAPI documentation surface.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "disasterfeed/docs"
	"disasterfeed/internal/config"
	"disasterfeed/internal/eventlog"
	"disasterfeed/internal/middleware"
	"disasterfeed/internal/models"
	"disasterfeed/internal/sse"
)

// Store is the subset of eventlog.DB the Query API needs to answer
// GET /events.
type Store interface {
	List(ctx context.Context, filter eventlog.ListFilter) ([]*models.Event, error)
}

// chiMiddleware adapts an http.HandlerFunc middleware to chi's
// func(http.Handler) http.Handler signature.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// NewRouter builds the complete HTTP handler for the Query API.
func NewRouter(cfg *config.Config, store Store, hub *sse.Hub) http.Handler {
	h := &Handler{
		store:    store,
		hub:      hub,
		validate: validator.New(),
		cfg:      cfg,
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	if cfg.API.CORSEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/", h.Running)

	r.Route("/api/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Get("/ping", h.Ping)
	})

	r.Route("/events", func(r chi.Router) {
		r.Use(httprate.LimitByIP(120, time.Minute))

		// The list endpoint is a normal buffered JSON response: safe to
		// compress and to instrument with the request-duration histogram.
		r.With(chiMiddleware(middleware.PrometheusMetrics), chiMiddleware(middleware.Compression)).
			Get("/", h.ListEvents)

		// The stream endpoint holds its connection open and flushes every
		// frame as it's written; wrapping it in the buffering/compression
		// middleware above would defeat that, so it runs unwrapped.
		r.Get("/stream", h.StreamEvents)
	})

	r.Handle("/metrics", promhttp.Handler())

	if cfg.API.SwaggerEnabled {
		r.Get("/api/docs", h.OpenAPIJSON)
		r.Get("/api-docs/*", httpSwagger.Handler(
			httpSwagger.URL("/api-docs/doc.json"),
			httpSwagger.DeepLinking(true),
			httpSwagger.DomID("swagger-ui"),
		))
	}

	return r
}
