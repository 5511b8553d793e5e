package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/coffee-ingest/internal/entity"
)

func TestQuarantineStore_SaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "quarantine")
	store, err := NewQuarantineStore(dir)
	require.NoError(t, err)

	rec := &entity.InvalidArtifact{
		ID:         "8d7f0a52-0000-4000-8000-000000000001",
		ArtifactID: "shopify-123",
		RoasterID:  "blue-tokai",
		Platform:   "shopify",
		Reason:     entity.CategoryMissingField,
		Errors: []entity.FieldError{
			{Category: entity.CategoryMissingField, Path: "product.title", Message: "field required"},
		},
		RawPayload:    []byte(`{"source":"shopify"}`),
		QuarantinedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(context.Background(), rec))

	b, err := os.ReadFile(filepath.Join(dir, rec.ID+".json"))
	require.NoError(t, err)
	var onDisk map[string]any
	require.NoError(t, json.Unmarshal(b, &onDisk))
	assert.Equal(t, `{"source":"shopify"}`, onDisk["raw_payload"])
	assert.Equal(t, "missing-field", onDisk["reason"])
	assert.Equal(t, "shopify-123", onDisk["artifact_id"])

	got, err := store.Load(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ArtifactID, got.ArtifactID)
	assert.Equal(t, rec.Errors, got.Errors)
	assert.Equal(t, rec.RawPayload, got.RawPayload)
	assert.True(t, rec.QuarantinedAt.Equal(got.QuarantinedAt))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestQuarantineStore_Errors(t *testing.T) {
	store, err := NewQuarantineStore(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, store.Save(context.Background(), &entity.InvalidArtifact{}), ErrMissingID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Save(ctx, &entity.InvalidArtifact{ID: "x"}), context.Canceled)

	_, err = store.Load("missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
