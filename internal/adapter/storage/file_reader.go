package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/user/coffee-ingest/internal/repository"
)

// FileReader reads artifacts from <dir>/<roaster>/<platform>/<file>.
type FileReader struct {
	dir string
}

// NewFileReader creates a reader rooted at dir.
func NewFileReader(dir string) *FileReader {
	return &FileReader{dir: dir}
}

// ReadArtifact implements repository.ArtifactReader.
func (r *FileReader) ReadArtifact(ctx context.Context, roasterID, platform, filename string) ([]byte, error) {
	if err := validateKey(roasterID, platform, filename); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(r.dir, roasterID, platform, filename)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, repository.ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	return b, nil
}
