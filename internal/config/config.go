// Package config loads process configuration from SPYCATS_* environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"spycats/internal/blob"
	"spycats/internal/core"
)

// Config is the full runtime configuration.
type Config struct {
	HTTPAddr string `env:"SPYCATS_HTTP_ADDR" envDefault:":8080"`

	StorageDriver string `env:"SPYCATS_STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath    string `env:"SPYCATS_SQLITE_PATH" envDefault:"data/spycats.db"`
	PostgresDSN   string `env:"SPYCATS_POSTGRES_DSN"`

	CatalogURL     string        `env:"SPYCATS_CATALOG_URL" envDefault:"https://api.thecatapi.com"`
	CatalogAPIKey  string        `env:"SPYCATS_CATALOG_API_KEY"`
	CatalogTimeout time.Duration `env:"SPYCATS_CATALOG_TIMEOUT" envDefault:"5s"`
	CatalogStatic  string        `env:"SPYCATS_CATALOG_STATIC"`

	LogLevel  string `env:"SPYCATS_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"SPYCATS_LOG_FORMAT" envDefault:"text"`

	OTelEndpoint string `env:"SPYCATS_OTEL_ENDPOINT"`

	Blob BlobConfig
}

// BlobConfig configures the dossier blob store.
type BlobConfig struct {
	Driver            string `env:"SPYCATS_BLOB_DRIVER" envDefault:"fs"`
	FSRoot            string `env:"SPYCATS_BLOB_FS_ROOT" envDefault:"data/blobs"`
	S3Bucket          string `env:"SPYCATS_BLOB_S3_BUCKET"`
	S3Region          string `env:"SPYCATS_BLOB_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint        string `env:"SPYCATS_BLOB_S3_ENDPOINT"`
	S3PathStyle       bool   `env:"SPYCATS_BLOB_S3_PATH_STYLE"`
	S3AccessKeyID     string `env:"SPYCATS_BLOB_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"SPYCATS_BLOB_S3_SECRET_ACCESS_KEY"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.CatalogTimeout <= 0 {
		return Config{}, fmt.Errorf("SPYCATS_CATALOG_TIMEOUT must be positive, got %s", cfg.CatalogTimeout)
	}
	return cfg, nil
}

// Storage returns the persistence settings.
func (c Config) Storage() core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(c.StorageDriver),
		SQLitePath:  c.SQLitePath,
		PostgresDSN: c.PostgresDSN,
	}
}

// BlobStore returns the dossier blob settings.
func (c Config) BlobStore() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		FSRoot: c.Blob.FSRoot,
		S3: blob.S3Config{
			Bucket:          c.Blob.S3Bucket,
			Region:          c.Blob.S3Region,
			Endpoint:        c.Blob.S3Endpoint,
			PathStyle:       c.Blob.S3PathStyle,
			AccessKeyID:     c.Blob.S3AccessKeyID,
			SecretAccessKey: c.Blob.S3SecretAccessKey,
		},
	}
}
