package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/user/coffee-ingest/internal/app"
	"github.com/user/coffee-ingest/internal/delivery/http/handler"
	"github.com/user/coffee-ingest/internal/delivery/http/router"
	"github.com/user/coffee-ingest/internal/usecase"
	"github.com/user/coffee-ingest/pkg/config"
	"github.com/user/coffee-ingest/pkg/logger"
	"github.com/user/coffee-ingest/pkg/metrics"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load(".env")
	if err != nil {
		panic(err)
	}

	// --- Logger ---
	log := logger.Must(cfg.LogLevel)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	// --- Metrics ---
	metrics.Init()

	// --- Dependencies ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{}, log)
	if err != nil {
		log.Fatal("failed to initialise dependencies", zap.Error(err))
	}
	defer a.Close()

	// --- Use Cases ---
	var ingestManager usecase.IngestManager
	var worker *usecase.IngestWorker
	if a.Queue != nil {
		ingestManager = usecase.NewIngestManager(a.Queue, log)
		if cfg.IngestWorkers > 0 {
			worker = usecase.NewIngestWorker(a.Queue, a.Pipeline, cfg.IngestWorkers, log)
			worker.Start(ctx)
		}
	}

	checks := make(map[string]handler.HealthCheck, len(a.Checks))
	for name, check := range a.Checks {
		checks[name] = check
	}

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(a.Pipeline, ingestManager, checks, log)
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(apiHandler, log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("could not start server", zap.Error(err))
		}
	}()
	log.Info("server started", zap.String("port", cfg.ServerPort))

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if worker != nil {
		worker.Stop()
	}

	log.Info("server exiting")
}
