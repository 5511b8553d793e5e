package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/coffee-ingest/internal/repository"
)

func TestFileReader_ReadArtifact(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "blue-tokai", "shopify"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blue-tokai", "shopify", "a.json"), []byte(`{"source":"shopify"}`), 0o644))

	reader := NewFileReader(dir)
	ctx := context.Background()

	tests := []struct {
		name     string
		roaster  string
		platform string
		file     string
		want     string
		wantErr  error
	}{
		{name: "found", roaster: "blue-tokai", platform: "shopify", file: "a.json", want: `{"source":"shopify"}`},
		{name: "missing file", roaster: "blue-tokai", platform: "shopify", file: "b.json", wantErr: repository.ErrArtifactNotFound},
		{name: "missing platform dir", roaster: "blue-tokai", platform: "woocommerce", file: "a.json", wantErr: repository.ErrArtifactNotFound},
		{name: "empty filename", roaster: "blue-tokai", platform: "shopify", file: "", wantErr: ErrEmptyKey},
		{name: "traversal", roaster: "..", platform: "shopify", file: "a.json", wantErr: ErrInvalidKey},
		{name: "traversal in filename", roaster: "blue-tokai", platform: "shopify", file: "../../etc/passwd", wantErr: ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reader.ReadArtifact(ctx, tt.roaster, tt.platform, tt.file)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestFileReader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileReader(t.TempDir()).ReadArtifact(ctx, "r", "p", "f.json")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBlobKey(t *testing.T) {
	assert.Equal(t, "blue-tokai/shopify/a.json", blobKey("blue-tokai", "shopify", "a.json"))
}

func TestNewBlobReader_Errors(t *testing.T) {
	_, err := NewBlobReader("UseDevelopmentStorage=true", "", nil)
	assert.ErrorContains(t, err, "container name required")

	_, err = NewBlobReader("not a connection string", "artifacts", nil)
	assert.ErrorContains(t, err, "create storage client")
}
