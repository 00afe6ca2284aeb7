package config

import "time"

const (
	DefaultMaxDownloadBytes = 128 * 1024 * 1024
	DefaultDownloadTimeout  = 180 * time.Second
	DefaultGapThresholdMs   = 250
	DefaultCueDurationMs    = 30000
	DefaultDownloadURL      = "https://autosubrt.jcaigc.cn/"
	DefaultInternalPrefix   = "/app/"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:        "0.0.0.0",
			Port:      60000,
			StaticDir: "output",
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Storage: StorageConfig{
			TempDir:        "temp",
			SrtOutputDir:   "output/srt",
			VideoOutputDir: "output/video",
			InternalPrefix: DefaultInternalPrefix,
			DownloadURL:    DefaultDownloadURL,
		},
		Download: DownloadConfig{
			MaxBytes:       DefaultMaxDownloadBytes,
			Timeout:        DefaultDownloadTimeout,
			UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36",
			Referer:        "https://www.jcaigc.cn/",
			AcceptLanguage: "zh-CN,zh;q=0.9,en;q=0.8",
		},
		Subtitle: SubtitleConfig{
			GapThresholdMs:    DefaultGapThresholdMs,
			DefaultDurationMs: DefaultCueDurationMs,
		},
		ASR: ASRConfig{
			Provider:       "funasr",
			Model:          "paraformer-zh",
			URL:            "http://127.0.0.1:10095/recognize",
			Language:       "zh",
			MaxConcurrency: 2,
			Timeout:        10 * time.Minute,
		},
		Jobs: JobsConfig{
			Store: "memory",
			TTL:   7 * 24 * time.Hour,
			SQLite: JobsSQLiteConf{
				DSN: "data/autosubrt.db",
			},
			Redis: JobsRedisConf{
				Prefix: "autosubrt:job:",
			},
		},
		Observability: ObservabilityConfig{
			ServiceName: "autosubrt",
		},
	}
}
