package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/coffee-ingest/internal/delivery/http/handler"
	"github.com/user/coffee-ingest/internal/delivery/http/middleware"
)

const requestTimeout = 5 * time.Minute

func New(h *handler.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/health", h.HandleHealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/batches", h.HandleSubmitBatch)
		r.Post("/ingest", h.HandleSubmitIngest)
		r.Get("/ingest/queue", h.HandleGetQueueSize)
		r.Post("/validate", h.HandleValidate)
		r.Get("/stats", h.HandleGetStats)
	})

	return r
}
