// Package app wires configuration into a ready pipeline and its
// collaborators. Both the API server and the CLI build on it.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/coffee-ingest/internal/adapter/fallback"
	"github.com/user/coffee-ingest/internal/adapter/filestore"
	"github.com/user/coffee-ingest/internal/adapter/postgres"
	redis_adapter "github.com/user/coffee-ingest/internal/adapter/redis"
	"github.com/user/coffee-ingest/internal/adapter/storage"
	"github.com/user/coffee-ingest/internal/repository"
	"github.com/user/coffee-ingest/internal/usecase"
	"github.com/user/coffee-ingest/pkg/config"
)

// Options changes what gets wired.
type Options struct {
	// DryRun skips every writer: no store, quarantine, raw archive or
	// dedupe marks. Artifacts end as "mapped".
	DryRun bool
}

// App holds the wired pipeline and the handles that must be closed.
type App struct {
	Pipeline *usecase.Pipeline
	// Queue is nil without Redis.
	Queue repository.QueueRepository
	// Checks pings each connected dependency by name.
	Checks map[string]func(ctx context.Context) error

	closers []func()
}

// New connects to the configured dependencies and builds the pipeline.
// Postgres and Redis are optional; without them the pipeline runs with
// fewer collaborators.
func New(ctx context.Context, cfg *config.Config, opts Options, logger *zap.Logger) (*App, error) {
	a := &App{Checks: make(map[string]func(ctx context.Context) error)}
	var deps usecase.Dependencies

	var pool *pgxpool.Pool
	if cfg.PostgresURL != "" && !opts.DryRun {
		p, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		pool = p
		a.closers = append(a.closers, p.Close)
		a.Checks["postgres"] = p.Ping
		logger.Info("postgres connection pool established")

		deps.Store = postgres.NewUpsertClient(pool, postgres.UpsertOptions{
			MaxRetries: retriesOption(cfg.UpsertMaxRetries),
			RatePerSec: cfg.UpsertRatePerSec,
		}, logger)
		deps.RawStore = postgres.NewRawArtifactRepo(pool)
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			a.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.Checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		logger.Info("redis connection established")

		a.Queue = redis_adapter.NewQueueRepo(rdb)
		if !opts.DryRun {
			deps.Processed = redis_adapter.NewProcessedRepo(rdb)
		}
	}

	if !opts.DryRun {
		q, err := newQuarantine(cfg, pool)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Quarantine = q
	}

	reader, err := newReader(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	deps.Reader = reader

	if cfg.ClassifierFallbackURL != "" {
		deps.Fallback = fallback.NewClient(cfg.ClassifierFallbackURL, fallback.Options{
			Timeout:    cfg.FallbackTimeout(),
			RatePerSec: cfg.ClassifierFallbackRPS,
		}, logger)
	}

	a.Pipeline = usecase.NewPipeline(deps, usecase.Options{
		Workers:            cfg.PipelineWorkers,
		DedupTTL:           cfg.DedupTTL(),
		DefaultCurrency:    cfg.DefaultCurrency,
		DefaultWeightGrams: cfg.DefaultWeightGrams,
		MetadataOnly:       cfg.MetadataOnly,
	}, logger)
	return a, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newQuarantine(cfg *config.Config, pool *pgxpool.Pool) (repository.QuarantineRepository, error) {
	switch cfg.QuarantineBackend {
	case config.BackendPostgres:
		if pool == nil {
			return nil, fmt.Errorf("postgres quarantine backend needs POSTGRES_URL")
		}
		return postgres.NewQuarantineRepo(pool), nil
	default:
		return filestore.NewQuarantineStore(cfg.QuarantineDir)
	}
}

func newReader(cfg *config.Config, logger *zap.Logger) (repository.ArtifactReader, error) {
	switch cfg.StorageBackend {
	case config.BackendAzblob:
		return storage.NewBlobReader(cfg.AzureConnectionString, cfg.AzureContainer, logger)
	default:
		return storage.NewFileReader(cfg.ArtifactDir), nil
	}
}

// retriesOption maps the configured count onto UpsertOptions, where zero
// means "default" and a negative value means "no retries".
func retriesOption(n int) int {
	if n == 0 {
		return -1
	}
	return n
}
