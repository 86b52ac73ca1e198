package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTempConfig creates a minimal configuration file required for
// LoadConfig and returns its path.
func writeTempConfig(t *testing.T) string {
	t.Helper()
	content := `priceflow:
  name: "TestApp"
  version: "1.0"
  token: "ETH"
fetcher:
  max_workers: 2
  timeout: 5s
sources:
  bulk_archive:
    market: "um"
    symbols: ["ETHUSDT"]
    intervals: ["1d"]
    years: ["2024"]
  snapshot_api_a:
    url: "https://example.com/a"
  snapshot_api_b:
    url: "https://example.com/b"
  snapshot_api_c:
    url: "https://example.com/c"
storage:
  s3:
    enabled: false
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Priceflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Priceflow.Name)
	}
	if cfg.Fetcher.MaxWorkers != 2 {
		t.Errorf("unexpected max workers: %d", cfg.Fetcher.MaxWorkers)
	}
	if cfg.Server.Address != ":8022" {
		t.Errorf("default address not applied: %s", cfg.Server.Address)
	}
	if cfg.Paths.DataDir != "data" {
		t.Errorf("default data dir not applied: %s", cfg.Paths.DataDir)
	}
}

func TestLoadConfigMissingToken(t *testing.T) {
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer os.Remove(f.Name())
	content := `priceflow:
  name: "TestApp"
  version: "1.0"
`
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatalf("expected validation error for missing token")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := &Config{Paths: PathsConfig{DataDir: "data", ModelDir: "models"}}

	if got := cfg.SeriesPath("bulk-archive"); got != filepath.Join("data", "bulk-archive_price_data.csv") {
		t.Errorf("unexpected series path: %s", got)
	}
	if got := cfg.ArtifactPath("snapshot-api-a"); got != filepath.Join("models", "snapshot-api-a_model.json") {
		t.Errorf("unexpected artifact path: %s", got)
	}
	if got := cfg.RawArchiveDir(); got != filepath.Join("data", "binance", "futures-klines") {
		t.Errorf("unexpected raw dir: %s", got)
	}
}

func TestAppEnvironmentAliases(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	if env := AppEnvironment(); env != "production" {
		t.Errorf("alias not resolved: %s", env)
	}
	if !IsProductionLike("production") {
		t.Errorf("production should be production-like")
	}
	if IsProductionLike("development") {
		t.Errorf("development should not be production-like")
	}
}
