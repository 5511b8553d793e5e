package repository

import (
	"context"

	"github.com/user/coffee-ingest/internal/entity"
)

// QuarantineRepository is a write-only sink for artifacts that could not be
// processed. Records are kept for manual review.
type QuarantineRepository interface {
	Save(ctx context.Context, record *entity.InvalidArtifact) error
}
