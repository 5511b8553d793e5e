package repository

import (
	"context"
	"time"
)

// ProcessedRepository remembers which raw payloads were processed recently
// so identical re-submissions can be skipped.
type ProcessedRepository interface {
	// MarkProcessed records a payload hash with an expiry.
	MarkProcessed(ctx context.Context, hash string, expiry time.Duration) error
	// IsProcessed checks whether a payload hash was processed within its expiry.
	IsProcessed(ctx context.Context, hash string) (bool, error)
	// Forget removes a payload hash, used when a run is forced.
	Forget(ctx context.Context, hash string) error
}
