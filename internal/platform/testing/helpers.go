package testing

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"autosubrt-server-go/internal/platform/config"
	"autosubrt-server-go/internal/platform/logging"
)

// SetupTestConfig 返回指向临时目录的配置，以及该目录。
// 识别器使用 exec + cat，输入文件内容即识别结果；任务存储在内存中。
func SetupTestConfig(t *testing.T) (*config.Config, string) {
	t.Helper()

	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Server.IP = "127.0.0.1"
	cfg.Server.StaticDir = filepath.Join(root, "output")
	cfg.Log = config.LogConfig{
		Level: "ERROR",
		Dir:   filepath.Join(root, "logs"),
		File:  "test.log",
	}
	cfg.Storage.TempDir = filepath.Join(root, "temp")
	cfg.Storage.SrtOutputDir = filepath.Join(root, "output", "srt")
	cfg.Storage.VideoOutputDir = filepath.Join(root, "output", "video")
	cfg.Storage.InternalPrefix = root + string(filepath.Separator)
	cfg.Storage.DownloadURL = "https://dl.example.com/"
	cfg.ASR.Provider = "exec"
	cfg.ASR.Command = "cat {audio}"
	cfg.Jobs.Store = "memory"
	cfg.Jobs.SQLite.DSN = filepath.Join(root, "data", "jobs.db")

	return cfg, root
}

// WriteConfigFile 把配置写成 yaml 文件并返回路径
func WriteConfigFile(t *testing.T, cfg *config.Config) string {
	t.Helper()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// SetupTestLogger 返回写入内存的日志记录器，JSON 输出可通过返回的 buffer 检查
func SetupTestLogger(t *testing.T, level string) (*logging.Logger, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	return logging.NewWithWriters(level, &buf, &bytes.Buffer{}), &buf
}
