package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoader_Load(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, ".config.yaml")

	configContent := `
server:
  ip: "127.0.0.1"
  port: 8080
log:
  log_level: "DEBUG"
  log_dir: "/tmp/logs"
  log_file: "test.log"
download:
  max_bytes: 1024
  timeout: 30s
subtitle:
  gap_threshold_ms: 1000
jobs:
  store: SQLite
`

	if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	result, err := NewLoader().
		WithDotEnv(false).
		WithPath(configFile).
		WithEnv(envMap(nil)).
		Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg := result.Config

	if result.Path != configFile {
		t.Errorf("expected path %s, got %s", configFile, result.Path)
	}
	if cfg.Server.IP != "127.0.0.1" {
		t.Errorf("expected server IP 127.0.0.1, got %s", cfg.Server.IP)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "DEBUG" {
		t.Errorf("expected log level DEBUG, got %s", cfg.Log.Level)
	}
	if cfg.Download.MaxBytes != 1024 || cfg.Download.Timeout != 30*time.Second {
		t.Errorf("unexpected download config %+v", cfg.Download)
	}
	if cfg.Subtitle.GapThresholdMs != 1000 {
		t.Errorf("expected gap threshold 1000, got %d", cfg.Subtitle.GapThresholdMs)
	}
	if cfg.Jobs.Store != "sqlite" {
		t.Errorf("expected normalised store sqlite, got %s", cfg.Jobs.Store)
	}
	// untouched sections keep their defaults
	if cfg.Storage.DownloadURL != DefaultDownloadURL {
		t.Errorf("expected default download url, got %s", cfg.Storage.DownloadURL)
	}
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	result, err := NewLoader().
		WithDotEnv(false).
		WithPath(filepath.Join(t.TempDir(), "absent.yaml")).
		WithEnv(envMap(nil)).
		Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Path != "default" {
		t.Errorf("expected default origin, got %s", result.Path)
	}
	if result.Config.Download.MaxBytes != DefaultMaxDownloadBytes {
		t.Errorf("expected 128MiB limit, got %d", result.Config.Download.MaxBytes)
	}
	if result.Config.Download.Timeout != DefaultDownloadTimeout {
		t.Errorf("expected 180s timeout, got %s", result.Config.Download.Timeout)
	}
	if result.Config.Subtitle.GapThresholdMs != DefaultGapThresholdMs {
		t.Errorf("expected 250ms gap, got %d", result.Config.Subtitle.GapThresholdMs)
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	result, err := NewLoader().
		WithDotEnv(false).
		WithPath(filepath.Join(t.TempDir(), "absent.yaml")).
		WithEnv(envMap(map[string]string{
			"DOWNLOAD_URL":   "https://cdn.example.com/",
			"AUTOSUBRT_PORT": "9000",
			"ASR_PROVIDER":   "OpenAI",
			"OPENAI_API_KEY": "sk-test",
		})).
		Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := result.Config
	if cfg.Storage.DownloadURL != "https://cdn.example.com/" {
		t.Errorf("DOWNLOAD_URL not applied: %s", cfg.Storage.DownloadURL)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("AUTOSUBRT_PORT not applied: %d", cfg.Server.Port)
	}
	if cfg.ASR.Provider != "openai" || cfg.ASR.APIKey != "sk-test" {
		t.Errorf("asr overrides not applied: %+v", cfg.ASR)
	}
}

func TestLoader_Validate(t *testing.T) {
	loader := NewLoader()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}, wantErr: false},
		{name: "invalid server port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "zero download limit", mutate: func(c *Config) { c.Download.MaxBytes = 0 }, wantErr: true},
		{name: "negative gap", mutate: func(c *Config) { c.Subtitle.GapThresholdMs = -1 }, wantErr: true},
		{name: "unknown store", mutate: func(c *Config) { c.Jobs.Store = "etcd" }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.ASR.Provider = "kaldi" }, wantErr: true},
		{name: "auth without secret", mutate: func(c *Config) { c.Server.Auth.Enabled = true }, wantErr: true},
		{name: "zero concurrency", mutate: func(c *Config) { c.ASR.MaxConcurrency = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := loader.validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
