// Package fallback is an HTTP client for an external product classifier,
// consulted when keyword rules cannot tell coffee from equipment.
package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/user/coffee-ingest/internal/entity"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultRatePerSec = 2.0
	maxAttempts       = 3
	retryBase         = 500 * time.Millisecond
	maxBodyBytes      = 1 << 20
)

var (
	// ErrUnavailable wraps transport failures and 5xx responses.
	ErrUnavailable = errors.New("classifier unavailable")
	// ErrBadResponse indicates a response that could not be used.
	ErrBadResponse = errors.New("classifier returned a bad response")
)

// Options tunes the client. Zero values select defaults.
type Options struct {
	Timeout    time.Duration
	RatePerSec float64
}

// Client posts classification requests as JSON to a single endpoint.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	rateLimiter *rate.Limiter
	retryBase   time.Duration
	logger      *zap.Logger
}

// NewClient creates a classifier client for endpoint.
func NewClient(endpoint string, opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = defaultRatePerSec
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient:  &http.Client{Timeout: opts.Timeout},
		endpoint:    endpoint,
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
		retryBase:   retryBase,
		logger:      logger.With(zap.String("component", "classifier_fallback")),
	}
}

// Classify implements repository.ClassificationFallback. Transport errors and
// 5xx responses are retried; 4xx responses are not.
func (c *Client) Classify(ctx context.Context, req *entity.ClassificationRequest) (*entity.ClassificationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode classification request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, exponentialBackoff(c.retryBase, attempt-1)); err != nil {
				return nil, err
			}
		}
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.do(ctx, body)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, ErrUnavailable) || ctx.Err() != nil {
			return nil, err
		}
		c.logger.Debug("classification attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, body []byte) (*entity.ClassificationResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
	}

	var out entity.ClassificationResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v out of range", ErrBadResponse, out.Confidence)
	}
	return &out, nil
}

func exponentialBackoff(base time.Duration, retry int) time.Duration {
	return base << (retry - 1)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
