package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.PipelineWorkers)
	assert.Equal(t, 48*time.Hour, cfg.DedupTTL())
	assert.Equal(t, BackendFile, cfg.StorageBackend)
	assert.Equal(t, "artifacts", cfg.AzureContainer)
	assert.Equal(t, 10*time.Second, cfg.FallbackTimeout())
	assert.InDelta(t, 50.0, cfg.UpsertRatePerSec, 1e-9)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, 250, cfg.DefaultWeightGrams)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvFileAndOverrides(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PIPELINE_WORKERS=8\nDEFAULT_CURRENCY=inr\nSERVER_PORT=9000\n"), 0o644))
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("METADATA_ONLY", "true")

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.PipelineWorkers)
	assert.Equal(t, "INR", cfg.DefaultCurrency)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.True(t, cfg.MetadataOnly)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "LOG_LEVEL"},
		{name: "no workers", mutate: func(c *Config) { c.PipelineWorkers = 0 }, wantErr: "PIPELINE_WORKERS"},
		{name: "unknown storage", mutate: func(c *Config) { c.StorageBackend = "s3" }, wantErr: "STORAGE_BACKEND"},
		{name: "azblob without credentials", mutate: func(c *Config) { c.StorageBackend = BackendAzblob }, wantErr: "AZURE_STORAGE_CONNECTION_STRING"},
		{name: "postgres quarantine without url", mutate: func(c *Config) { c.QuarantineBackend = BackendPostgres }, wantErr: "POSTGRES_URL"},
		{name: "fallback without rate", mutate: func(c *Config) {
			c.ClassifierFallbackURL = "http://classifier"
			c.ClassifierFallbackRPS = 0
		}, wantErr: "CLASSIFIER_FALLBACK_RPS"},
		{name: "bad currency", mutate: func(c *Config) { c.DefaultCurrency = "RUPEE" }, wantErr: "DEFAULT_CURRENCY"},
		{name: "zero weight", mutate: func(c *Config) { c.DefaultWeightGrams = 0 }, wantErr: "DEFAULT_WEIGHT_GRAMS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}
