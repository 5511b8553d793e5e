package repository

import (
	"context"

	"github.com/user/coffee-ingest/internal/entity"
)

// RawArtifactRepository keeps the raw document of every persisted artifact
// for audit. Callers must verify the artifact's hashes first.
type RawArtifactRepository interface {
	// Save stores the raw payload. Saving the same raw payload hash twice is a no-op.
	Save(ctx context.Context, artifactID string, artifact *entity.Artifact, raw []byte) error
}
