package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.uber.org/zap"

	"github.com/user/coffee-ingest/internal/repository"
)

// BlobReader reads artifacts from an Azure Blob container. Blob keys are
// <roaster>/<platform>/<file>.
type BlobReader struct {
	client    *azblob.Client
	container string
	logger    *zap.Logger
}

// NewBlobReader creates a reader from a storage connection string. No
// request is made until the first read.
func NewBlobReader(connectionString, container string, logger *zap.Logger) (*BlobReader, error) {
	if container == "" {
		return nil, fmt.Errorf("container name required")
	}
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlobReader{
		client:    client,
		container: container,
		logger:    logger.With(zap.String("component", "blob_reader")),
	}, nil
}

// ReadArtifact implements repository.ArtifactReader.
func (r *BlobReader) ReadArtifact(ctx context.Context, roasterID, platform, filename string) ([]byte, error) {
	if err := validateKey(roasterID, platform, filename); err != nil {
		return nil, err
	}
	key := blobKey(roasterID, platform, filename)

	resp, err := r.client.DownloadStream(ctx, r.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%s: %w", key, repository.ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("download blob %s: %w", key, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	r.logger.Debug("artifact downloaded", zap.String("key", key), zap.Int("bytes", len(b)))
	return b, nil
}

func blobKey(roasterID, platform, filename string) string {
	return path.Join(roasterID, platform, filename)
}
