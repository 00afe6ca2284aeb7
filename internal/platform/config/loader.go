package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"autosubrt-server-go/internal/platform/errors"
)

const (
	DefaultConfigPath = ".config.yaml"
	EnvConfigPath     = "AUTOSUBRT_CONFIG"
)

// Loader reads the yaml config file on top of DefaultConfig and applies env overrides.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader that reads .env and the default config path.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		lookupEnv: os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the config file path.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// WithEnv overrides environment lookups (useful for tests).
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	if lookup != nil {
		l.lookupEnv = lookup
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load 加载配置。配置文件不存在时使用默认配置。
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("未找到 .env 文件，使用系统环境变量")
		}
	}

	path := l.path
	if path == "" {
		if envPath, ok := l.lookupEnv(EnvConfigPath); ok && envPath != "" {
			path = envPath
		} else {
			path = DefaultConfigPath
		}
	}

	cfg := DefaultConfig()
	origin := "default"
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.KindConfig, "config.parse", "failed to parse "+path, err)
		}
		origin = path
	case os.IsNotExist(err):
	default:
		return nil, errors.Wrap(errors.KindConfig, "config.read", "failed to read "+path, err)
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: origin}, nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	if v, ok := l.lookupEnv("DOWNLOAD_URL"); ok && v != "" {
		cfg.Storage.DownloadURL = v
	}
	if v, ok := l.lookupEnv("AUTOSUBRT_LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := l.lookupEnv("ASR_PROVIDER"); ok && v != "" {
		cfg.ASR.Provider = v
	}
	if v, ok := l.lookupEnv("OPENAI_API_KEY"); ok && v != "" && cfg.ASR.APIKey == "" {
		cfg.ASR.APIKey = v
	}
	if v, ok := l.lookupEnv("AUTOSUBRT_JWT_SECRET"); ok && v != "" {
		cfg.Server.Auth.Secret = v
	}
	if v, ok := l.lookupEnv("AUTOSUBRT_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.KindConfig, "config.env", "AUTOSUBRT_PORT is not a number", err)
		}
		cfg.Server.Port = port
	}
	return nil
}

var (
	knownStores    = map[string]bool{"memory": true, "sqlite": true, "redis": true}
	knownProviders = map[string]bool{"exec": true, "funasr": true, "openai": true}
)

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New(errors.KindConfig, "config.validate", fmt.Sprintf("invalid server port %d", cfg.Server.Port))
	}
	if cfg.Download.MaxBytes <= 0 {
		return errors.New(errors.KindConfig, "config.validate", "download.max_bytes must be positive")
	}
	if cfg.Download.Timeout <= 0 {
		return errors.New(errors.KindConfig, "config.validate", "download.timeout must be positive")
	}
	if cfg.Subtitle.GapThresholdMs < 0 {
		return errors.New(errors.KindConfig, "config.validate", "subtitle.gap_threshold_ms must not be negative")
	}
	if cfg.ASR.MaxConcurrency <= 0 {
		return errors.New(errors.KindConfig, "config.validate", "asr.max_concurrency must be positive")
	}
	store := strings.ToLower(strings.TrimSpace(cfg.Jobs.Store))
	if !knownStores[store] {
		return errors.New(errors.KindConfig, "config.validate", fmt.Sprintf("unknown jobs.store %q", cfg.Jobs.Store))
	}
	cfg.Jobs.Store = store
	provider := strings.ToLower(strings.TrimSpace(cfg.ASR.Provider))
	if !knownProviders[provider] {
		return errors.New(errors.KindConfig, "config.validate", fmt.Sprintf("unknown asr.provider %q", cfg.ASR.Provider))
	}
	cfg.ASR.Provider = provider
	if cfg.Server.Auth.Enabled && cfg.Server.Auth.Secret == "" {
		return errors.New(errors.KindConfig, "config.validate", "server.auth.secret is required when auth is enabled")
	}
	return nil
}
