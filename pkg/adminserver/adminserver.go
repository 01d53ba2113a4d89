// Package adminserver exposes the chi-based admin HTTP surface shared by
// both cmd/syncd and cmd/triaged: health checks, the Prometheus scrape
// endpoint, and (for syncd) a manual sync-trigger endpoint.
package adminserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/metrics"
)

func New(mc *metrics.Collector, log *logrus.Logger) *chi.Mux {
	return newRouter(mc, log, nil)
}

// NewWithTrigger wires in a manual /sync/trigger endpoint on top of the
// base health/metrics surface, used by cmd/syncd only.
func NewWithTrigger(mc *metrics.Collector, log *logrus.Logger, trigger func(ctx context.Context) interface{}) *chi.Mux {
	return newRouter(mc, log, trigger)
}

func newRouter(mc *metrics.Collector, log *logrus.Logger, trigger func(ctx context.Context) interface{}) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.HandlerFor(mc.Registry(), promhttp.HandlerOpts{}))

	if trigger != nil {
		r.Post("/sync/trigger", func(w http.ResponseWriter, req *http.Request) {
			ctx, cancel := context.WithTimeout(req.Context(), 5*time.Minute)
			defer cancel()

			report := trigger(ctx)
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(report); err != nil {
				log.WithError(err).Error("failed to encode sync trigger response")
			}
		})
	}

	return r
}
