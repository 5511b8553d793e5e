package redis

import (
	"context"
	"strings"
	"time"

	"github.com/user/coffee-ingest/pkg/utils"
)

const processedPrefix = "processed:"

// ProcessedRepoImpl remembers processed raw payload hashes as expiring Redis keys.
type ProcessedRepoImpl struct {
	client Client
}

// NewProcessedRepo creates a new instance of ProcessedRepoImpl.
func NewProcessedRepo(client Client) *ProcessedRepoImpl {
	return &ProcessedRepoImpl{client: client}
}

// generateKey strips the digest prefix so keys read "processed:<hex>".
func (r *ProcessedRepoImpl) generateKey(hash string) string {
	return processedPrefix + strings.TrimPrefix(hash, utils.HashPrefix)
}

// MarkProcessed sets the hash key with an expiry (SETEX).
func (r *ProcessedRepoImpl) MarkProcessed(ctx context.Context, hash string, expiry time.Duration) error {
	return r.client.SetEx(ctx, r.generateKey(hash), "1", expiry).Err()
}

// IsProcessed checks for the hash key (EXISTS).
func (r *ProcessedRepoImpl) IsProcessed(ctx context.Context, hash string) (bool, error) {
	n, err := r.client.Exists(ctx, r.generateKey(hash)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Forget removes the hash key (DEL), used for forced runs.
func (r *ProcessedRepoImpl) Forget(ctx context.Context, hash string) error {
	return r.client.Del(ctx, r.generateKey(hash)).Err()
}
