package repository

import (
	"context"
	"errors"
)

// ErrArtifactNotFound is returned by readers when no artifact exists under the given name.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactReader supplies raw artifact bytes by filename.
type ArtifactReader interface {
	// ReadArtifact returns the raw JSON stored for roasterID/platform/filename.
	ReadArtifact(ctx context.Context, roasterID, platform, filename string) ([]byte, error)
}
