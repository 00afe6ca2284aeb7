package asr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"

	"autosubrt-server-go/internal/platform/config"
	"autosubrt-server-go/internal/platform/logging"
)

const (
	ProviderExec   = "exec"
	ProviderFunASR = "funasr"
	ProviderOpenAI = "openai"

	// audioPlaceholder 命令行中的占位符，缺省时把音频路径追加到参数末尾
	audioPlaceholder = "{audio}"
)

// execRecognizer 调用本地脚本（例如 paraformer 推理脚本），从 stdout 读取 JSON 结果
type execRecognizer struct {
	cmd    []string
	logger *logging.Logger
}

// NewExecRecognizer 解析 asr.command 创建提供者
func NewExecRecognizer(cfg config.ASRConfig, logger *logging.Logger) (Recognizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse asr command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("asr command is empty")
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		return nil, fmt.Errorf("asr command not found: %w", err)
	}
	return &execRecognizer{cmd: args, logger: logger}, nil
}

func (r *execRecognizer) Name() string { return ProviderExec }

func (r *execRecognizer) Recognize(ctx context.Context, audioPath string) ([]RawResult, error) {
	args := make([]string, 0, len(r.cmd)+1)
	replaced := false
	for _, arg := range r.cmd[1:] {
		if strings.Contains(arg, audioPlaceholder) {
			arg = strings.ReplaceAll(arg, audioPlaceholder, audioPath)
			replaced = true
		}
		args = append(args, arg)
	}
	if !replaced {
		args = append(args, audioPath)
	}

	command := exec.CommandContext(ctx, r.cmd[0], args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("asr command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	results, err := DecodeResults(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("decode asr output: %w", err)
	}
	return results, nil
}
