package config

import (
	"time"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	Storage       StorageConfig       `yaml:"storage"`
	Download      DownloadConfig      `yaml:"download"`
	Subtitle      SubtitleConfig      `yaml:"subtitle"`
	ASR           ASRConfig           `yaml:"asr"`
	Jobs          JobsConfig          `yaml:"jobs"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	IP        string     `yaml:"ip"`
	Port      int        `yaml:"port"`
	StaticDir string     `yaml:"static_dir"`
	Auth      AuthConfig `yaml:"auth"`
}

// AuthConfig 可选的 Bearer JWT 校验
type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
	Issuer  string `yaml:"issuer"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

// StorageConfig 临时目录、输出目录以及下载地址映射
type StorageConfig struct {
	TempDir        string `yaml:"temp_dir"`
	SrtOutputDir   string `yaml:"srt_output_dir"`
	VideoOutputDir string `yaml:"video_output_dir"`
	InternalPrefix string `yaml:"internal_prefix"`
	DownloadURL    string `yaml:"download_url"`
}

type DownloadConfig struct {
	MaxBytes       int64         `yaml:"max_bytes"`
	Timeout        time.Duration `yaml:"timeout"`
	UserAgent      string        `yaml:"user_agent"`
	Referer        string        `yaml:"referer"`
	AcceptLanguage string        `yaml:"accept_language"`
}

type SubtitleConfig struct {
	GapThresholdMs    int64 `yaml:"gap_threshold_ms"`
	DefaultDurationMs int64 `yaml:"default_duration_ms"`
}

// ASRConfig 语音识别引擎配置，Provider 取值 exec / funasr / openai
type ASRConfig struct {
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	URL            string        `yaml:"url"`
	APIKey         string        `yaml:"api_key"`
	Command        string        `yaml:"command"`
	Language       string        `yaml:"language"`
	MaxConcurrency int64         `yaml:"max_concurrency"`
	Timeout        time.Duration `yaml:"timeout"`
}

type JobsConfig struct {
	Store  string         `yaml:"store"`
	TTL    time.Duration  `yaml:"ttl"`
	SQLite JobsSQLiteConf `yaml:"sqlite"`
	Redis  JobsRedisConf  `yaml:"redis"`
}

type JobsSQLiteConf struct {
	DSN string `yaml:"dsn"`
}

type JobsRedisConf struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type ObservabilityConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}
