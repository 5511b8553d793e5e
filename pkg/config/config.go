package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	BackendFile     = "file"
	BackendAzblob   = "azblob"
	BackendPostgres = "postgres"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	PostgresURL   string `mapstructure:"POSTGRES_URL"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	DedupTTLHours   int  `mapstructure:"DEDUP_TTL_HOURS"`
	PipelineWorkers int  `mapstructure:"PIPELINE_WORKERS"`
	IngestWorkers   int  `mapstructure:"INGEST_WORKERS"`
	MetadataOnly    bool `mapstructure:"METADATA_ONLY"`

	StorageBackend        string `mapstructure:"STORAGE_BACKEND"`
	ArtifactDir           string `mapstructure:"ARTIFACT_DIR"`
	AzureConnectionString string `mapstructure:"AZURE_STORAGE_CONNECTION_STRING"`
	AzureContainer        string `mapstructure:"AZURE_STORAGE_CONTAINER"`

	QuarantineBackend string `mapstructure:"QUARANTINE_BACKEND"`
	QuarantineDir     string `mapstructure:"QUARANTINE_DIR"`

	ClassifierFallbackURL     string  `mapstructure:"CLASSIFIER_FALLBACK_URL"`
	ClassifierFallbackTimeout int     `mapstructure:"CLASSIFIER_FALLBACK_TIMEOUT"` // in seconds
	ClassifierFallbackRPS     float64 `mapstructure:"CLASSIFIER_FALLBACK_RPS"`

	UpsertMaxRetries int     `mapstructure:"UPSERT_MAX_RETRIES"`
	UpsertRatePerSec float64 `mapstructure:"UPSERT_RATE_PER_SEC"`

	DefaultCurrency    string `mapstructure:"DEFAULT_CURRENCY"`
	DefaultWeightGrams int    `mapstructure:"DEFAULT_WEIGHT_GRAMS"`
}

var defaults = map[string]any{
	"SERVER_PORT":                     "8080",
	"LOG_LEVEL":                       "info",
	"POSTGRES_URL":                    "",
	"REDIS_ADDR":                      "",
	"REDIS_PASSWORD":                  "",
	"REDIS_DB":                        0,
	"DEDUP_TTL_HOURS":                 48,
	"PIPELINE_WORKERS":                4,
	"INGEST_WORKERS":                  1,
	"METADATA_ONLY":                   false,
	"STORAGE_BACKEND":                 BackendFile,
	"ARTIFACT_DIR":                    "./data/artifacts",
	"AZURE_STORAGE_CONNECTION_STRING": "",
	"AZURE_STORAGE_CONTAINER":         "artifacts",
	"QUARANTINE_BACKEND":              BackendFile,
	"QUARANTINE_DIR":                  "./data/quarantine",
	"CLASSIFIER_FALLBACK_URL":         "",
	"CLASSIFIER_FALLBACK_TIMEOUT":     10,
	"CLASSIFIER_FALLBACK_RPS":         2.0,
	"UPSERT_MAX_RETRIES":              3,
	"UPSERT_RATE_PER_SEC":             50.0,
	"DEFAULT_CURRENCY":                "USD",
	"DEFAULT_WEIGHT_GRAMS":            250,
}

// Load reads configuration from an env file and the environment. Environment
// variables win. A missing file is not an error; configuration can come
// purely from the environment in production.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	if envFile == "" {
		envFile = ".env"
	}
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	// Every key needs a default so AutomaticEnv values reach Unmarshal.
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.DefaultCurrency = strings.ToUpper(strings.TrimSpace(cfg.DefaultCurrency))
	return &cfg, nil
}

// Validate rejects values the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.PipelineWorkers < 1 {
		errs = append(errs, errors.New("PIPELINE_WORKERS must be at least 1"))
	}
	if c.IngestWorkers < 0 {
		errs = append(errs, errors.New("INGEST_WORKERS must not be negative"))
	}
	if c.DedupTTLHours < 0 {
		errs = append(errs, errors.New("DEDUP_TTL_HOURS must not be negative"))
	}

	switch c.StorageBackend {
	case BackendFile:
		if c.ArtifactDir == "" {
			errs = append(errs, errors.New("ARTIFACT_DIR is required for the file storage backend"))
		}
	case BackendAzblob:
		if c.AzureConnectionString == "" || c.AzureContainer == "" {
			errs = append(errs, errors.New("AZURE_STORAGE_CONNECTION_STRING and AZURE_STORAGE_CONTAINER are required for the azblob storage backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND %q is not one of file, azblob", c.StorageBackend))
	}

	switch c.QuarantineBackend {
	case BackendFile:
		if c.QuarantineDir == "" {
			errs = append(errs, errors.New("QUARANTINE_DIR is required for the file quarantine backend"))
		}
	case BackendPostgres:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required for the postgres quarantine backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("QUARANTINE_BACKEND %q is not one of file, postgres", c.QuarantineBackend))
	}

	if c.ClassifierFallbackURL != "" && (c.ClassifierFallbackTimeout <= 0 || c.ClassifierFallbackRPS <= 0) {
		errs = append(errs, errors.New("CLASSIFIER_FALLBACK_TIMEOUT and CLASSIFIER_FALLBACK_RPS must be positive"))
	}
	if c.UpsertMaxRetries < 0 {
		errs = append(errs, errors.New("UPSERT_MAX_RETRIES must not be negative"))
	}
	if c.UpsertRatePerSec <= 0 {
		errs = append(errs, errors.New("UPSERT_RATE_PER_SEC must be positive"))
	}
	if len(c.DefaultCurrency) != 3 {
		errs = append(errs, fmt.Errorf("DEFAULT_CURRENCY %q is not a 3-letter code", c.DefaultCurrency))
	}
	if c.DefaultWeightGrams <= 0 {
		errs = append(errs, errors.New("DEFAULT_WEIGHT_GRAMS must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) DedupTTL() time.Duration {
	return time.Duration(c.DedupTTLHours) * time.Hour
}

func (c *Config) FallbackTimeout() time.Duration {
	return time.Duration(c.ClassifierFallbackTimeout) * time.Second
}
