package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Priceflow PriceflowConfig `yaml:"priceflow"`
	Server    ServerConfig    `yaml:"server"`
	Paths     PathsConfig     `yaml:"paths"`
	Fetcher   FetcherConfig   `yaml:"fetcher"`
	Sources   SourcesConfig   `yaml:"sources"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type PriceflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	// Token is the single asset this worker serves predictions for.
	Token string `yaml:"token"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type PathsConfig struct {
	DataDir  string `yaml:"data_dir"`
	ModelDir string `yaml:"model_dir"`
}

type FetcherConfig struct {
	// MaxWorkers bounds the download pool. Zero means one worker per CPU.
	MaxWorkers int             `yaml:"max_workers"`
	Timeout    time.Duration   `yaml:"timeout"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type SourcesConfig struct {
	BulkArchive  BulkArchiveConfig `yaml:"bulk_archive"`
	SnapshotAPIA SnapshotConfig    `yaml:"snapshot_api_a"`
	SnapshotAPIB SnapshotConfig    `yaml:"snapshot_api_b"`
	SnapshotAPIC SnapshotConfig    `yaml:"snapshot_api_c"`
}

type BulkArchiveConfig struct {
	BaseURL   string   `yaml:"base_url"`
	Market    string   `yaml:"market"`
	Symbols   []string `yaml:"symbols"`
	Intervals []string `yaml:"intervals"`
	Years     []string `yaml:"years"`
}

type SnapshotConfig struct {
	URL          string        `yaml:"url"`
	APIKeyHeader string        `yaml:"api_key_header"`
	APIKeyEnv    string        `yaml:"api_key_env"`
	Timeout      time.Duration `yaml:"timeout"`
	// DropLatest discards the newest observation returned by the provider.
	DropLatest bool `yaml:"drop_latest"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Server: ServerConfig{
			Address:         ":8022",
			ShutdownTimeout: 30 * time.Second,
		},
		Paths: PathsConfig{
			DataDir:  "data",
			ModelDir: "models",
		},
		Fetcher: FetcherConfig{
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Priceflow.Name == "" {
		return fmt.Errorf("priceflow.name is required")
	}

	if cfg.Priceflow.Version == "" {
		return fmt.Errorf("priceflow.version is required")
	}

	if cfg.Priceflow.Token == "" {
		return fmt.Errorf("priceflow.token is required")
	}

	if cfg.Fetcher.MaxWorkers < 0 {
		return fmt.Errorf("fetcher.max_workers must not be negative")
	}

	if cfg.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be greater than 0")
	}

	bulk := cfg.Sources.BulkArchive
	if len(bulk.Symbols) == 0 {
		return fmt.Errorf("sources.bulk_archive.symbols is required")
	}
	if len(bulk.Intervals) == 0 {
		return fmt.Errorf("sources.bulk_archive.intervals is required")
	}
	if bulk.Market != "cm" && bulk.Market != "um" {
		return fmt.Errorf("sources.bulk_archive.market must be cm or um")
	}

	for name, snap := range map[string]SnapshotConfig{
		"snapshot_api_a": cfg.Sources.SnapshotAPIA,
		"snapshot_api_b": cfg.Sources.SnapshotAPIB,
		"snapshot_api_c": cfg.Sources.SnapshotAPIC,
	} {
		if snap.URL == "" {
			return fmt.Errorf("sources.%s.url is required", name)
		}
		if IsProductionLike(AppEnvironment()) && snap.APIKeyEnv != "" && os.Getenv(snap.APIKeyEnv) == "" {
			return fmt.Errorf("sources.%s requires %s to be set", name, snap.APIKeyEnv)
		}
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
	}

	return nil
}

// RawArchiveDir is the directory holding downloaded bulk archives.
func (c *Config) RawArchiveDir() string {
	return filepath.Join(c.Paths.DataDir, "binance", "futures-klines")
}

// SeriesPath returns the canonical series file for a source identifier.
func (c *Config) SeriesPath(source string) string {
	return filepath.Join(c.Paths.DataDir, source+"_price_data.csv")
}

// ArtifactPath returns the model artifact file for a source identifier.
func (c *Config) ArtifactPath(source string) string {
	return filepath.Join(c.Paths.ModelDir, source+"_model.json")
}
