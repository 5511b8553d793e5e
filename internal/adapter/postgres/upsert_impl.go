package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/pkg/metrics"
)

// Store RPC names. They double as metric and stats labels.
const (
	OpUpsertCoffee      = "upsert_coffee"
	OpUpsertVariant     = "upsert_variant"
	OpInsertPrice       = "insert_price"
	OpUpsertCoffeeImage = "upsert_coffee_image"
)

const (
	defaultMaxRetries = 3
	defaultRatePerSec = 50
	initialBackoff    = 200 * time.Millisecond
	jitterFactor      = 0.2 // +/- 20%
)

// PersistError reports a failed store call.
type PersistError struct {
	Op        string
	Attempts  int
	Retryable bool
	Err       error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// UpsertOptions tunes the upsert client.
type UpsertOptions struct {
	MaxRetries int
	RatePerSec float64
	Backoff    time.Duration
}

// UpsertClient calls the catalogue's upsert functions. Each call sends one
// JSONB argument and reads back the id of the written row.
type UpsertClient struct {
	db         DB
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger

	mu    sync.Mutex
	stats entity.UpsertStats
}

// NewUpsertClient creates an upsert client over db.
func NewUpsertClient(db DB, opts UpsertOptions, logger *zap.Logger) *UpsertClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = defaultRatePerSec
	}
	if opts.Backoff <= 0 {
		opts.Backoff = initialBackoff
	}
	burst := int(opts.RatePerSec)
	if burst < 1 {
		burst = 1
	}
	return &UpsertClient{
		db:         db,
		limiter:    rate.NewLimiter(rate.Limit(opts.RatePerSec), burst),
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		logger:     logger.With(zap.String("component", "upsert_client")),
		stats:      entity.UpsertStats{Calls: map[string]int{}, Failures: map[string]int{}},
	}
}

func (c *UpsertClient) UpsertCoffee(ctx context.Context, coffee *entity.CoffeePayload) (string, error) {
	return c.call(ctx, OpUpsertCoffee, coffee)
}

func (c *UpsertClient) UpsertVariant(ctx context.Context, coffeeID string, variant *entity.VariantPayload) (string, error) {
	return c.call(ctx, OpUpsertVariant, struct {
		CoffeeID string `json:"coffee_id"`
		*entity.VariantPayload
	}{coffeeID, variant})
}

func (c *UpsertClient) InsertPrice(ctx context.Context, variantID string, price *entity.PricePayload) (string, error) {
	return c.call(ctx, OpInsertPrice, struct {
		VariantID string `json:"variant_id"`
		*entity.PricePayload
	}{variantID, price})
}

func (c *UpsertClient) UpsertCoffeeImage(ctx context.Context, coffeeID string, image *entity.ImagePayload) (string, error) {
	return c.call(ctx, OpUpsertCoffeeImage, struct {
		CoffeeID string `json:"coffee_id"`
		*entity.ImagePayload
	}{coffeeID, image})
}

// UpsertStats returns a copy of the call counters.
func (c *UpsertClient) UpsertStats() entity.UpsertStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := entity.UpsertStats{
		Calls:    make(map[string]int, len(c.stats.Calls)),
		Failures: make(map[string]int, len(c.stats.Failures)),
		Retries:  c.stats.Retries,
	}
	for k, v := range c.stats.Calls {
		out.Calls[k] = v
	}
	for k, v := range c.stats.Failures {
		out.Failures[k] = v
	}
	return out
}

func (c *UpsertClient) call(ctx context.Context, op string, arg any) (string, error) {
	start := time.Now()
	defer func() {
		metrics.UpsertDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()
	c.count(func(s *entity.UpsertStats) { s.Calls[op]++ })

	body, err := json.Marshal(arg)
	if err != nil {
		return "", c.fail(op, 0, false, fmt.Errorf("encode payload: %w", err))
	}
	query := fmt.Sprintf("SELECT %s($1::jsonb)::text", op)

	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", c.fail(op, attempt-1, false, err)
		}

		var id string
		err := c.db.QueryRow(ctx, query, body).Scan(&id)
		if err == nil {
			metrics.UpsertCalls.WithLabelValues(op, "success").Inc()
			return id, nil
		}

		retry := retryable(err)
		if !retry || attempt > c.maxRetries {
			return "", c.fail(op, attempt, retry, err)
		}
		c.count(func(s *entity.UpsertStats) { s.Retries++ })
		wait := backoff(c.backoff, attempt)
		c.logger.Warn("retrying store call",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", c.fail(op, attempt, true, ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *UpsertClient) fail(op string, attempts int, retry bool, err error) error {
	c.count(func(s *entity.UpsertStats) { s.Failures[op]++ })
	metrics.UpsertCalls.WithLabelValues(op, "failure").Inc()
	return &PersistError{Op: op, Attempts: attempts, Retryable: retry, Err: err}
}

func (c *UpsertClient) count(update func(*entity.UpsertStats)) {
	c.mu.Lock()
	update(&c.stats)
	c.mu.Unlock()
}

// retryable reports whether err is transient: connection loss, timeouts,
// serialization failures, deadlocks and server resource exhaustion.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "57P01":
			return true
		case len(pgErr.Code) >= 2 && (pgErr.Code[:2] == "08" || pgErr.Code[:2] == "53"):
			return true
		}
		return false
	}
	return pgconn.Timeout(err) || pgconn.SafeToRetry(err)
}

// backoff doubles base per attempt and applies jitter.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	jitter := (rand.Float64()*2 - 1) * jitterFactor
	return time.Duration(float64(d) * (1 + jitter))
}
