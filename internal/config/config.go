// Package config loads and validates the job configuration from a JSON file,
// with environment fallbacks for credentials.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Lllllllleong/documentpublisher/internal/gcp"
)

// Supported storage backends.
const (
	BackendGCS = "gcs"
	BackendS3  = "s3"
)

// DatabaseConfig describes the row source.
type DatabaseConfig struct {
	URL   string `json:"url"`
	Query string `json:"query"`
}

// GCSConfig describes the Cloud Storage backend.
type GCSConfig struct {
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix"`
	CredentialsFile string `json:"credentials_file,omitempty"`
}

// S3Config describes the S3-compatible backend.
type S3Config struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Folder    string `json:"folder"`
	Port      int    `json:"port,omitempty"`
	UseSSL    bool   `json:"use_ssl,omitempty"`
}

// StorageConfig selects and configures the remote store backend.
type StorageConfig struct {
	Backend string    `json:"backend"`
	GCS     GCSConfig `json:"gcs,omitempty"`
	S3      S3Config  `json:"s3,omitempty"`
}

// ResultsConfig describes the run-summary sink. Leaving the collection empty
// disables the sink.
type ResultsConfig struct {
	ProjectID  string `json:"project_id"`
	Collection string `json:"collection"`
}

// WorkflowConfig describes the optional downstream workflow trigger.
// Leaving the ID empty disables it.
type WorkflowConfig struct {
	ProjectID string `json:"project_id,omitempty"`
	Location  string `json:"location,omitempty"`
	ID        string `json:"id,omitempty"`
}

// Config is the full job configuration.
type Config struct {
	CryptoKey     string         `json:"crypto_key"`
	StagingDir    string         `json:"staging_dir"`
	RetentionDays int            `json:"file_retention_days"`
	Converter     string         `json:"converter,omitempty"`
	Database      DatabaseConfig `json:"database"`
	Storage       StorageConfig  `json:"storage"`
	Results       ResultsConfig  `json:"results,omitempty"`
	Workflow      WorkflowConfig `json:"workflow,omitempty"`
}

// Load reads the configuration file and applies environment fallbacks for
// values that are commonly injected rather than checked in.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if cfg.CryptoKey == "" {
		cfg.CryptoKey = gcp.GetEnv("CRYPTO_KEY", "")
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = gcp.GetEnv("DATABASE_URL", "")
	}
	if cfg.StagingDir == "" {
		cfg.StagingDir = gcp.GetEnv("STAGING_DIR", "./files")
	}

	return &cfg, nil
}

// Validate checks that the configuration is complete enough to run a job.
func (c *Config) Validate() error {
	if c.CryptoKey == "" {
		return fmt.Errorf("config error: crypto_key must be set (or CRYPTO_KEY in the environment)")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("config error: database.url must be set (or DATABASE_URL in the environment)")
	}
	if c.Database.Query == "" {
		return fmt.Errorf("config error: database.query must be set")
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("config error: file_retention_days must be positive")
	}

	switch c.Storage.Backend {
	case BackendGCS:
		if c.Storage.GCS.Bucket == "" {
			return fmt.Errorf("config error: storage.gcs.bucket must be set")
		}
	case BackendS3:
		s3 := c.Storage.S3
		if s3.Endpoint == "" || s3.AccessKey == "" || s3.SecretKey == "" || s3.Bucket == "" {
			return fmt.Errorf("config error: storage.s3 requires endpoint, access_key, secret_key and bucket")
		}
	default:
		return fmt.Errorf("config error: storage.backend must be %q or %q, got %q", BackendGCS, BackendS3, c.Storage.Backend)
	}

	if c.Workflow.ID != "" && c.Workflow.Location == "" {
		return fmt.Errorf("config error: workflow.location must be set when workflow.id is configured")
	}
	return nil
}
