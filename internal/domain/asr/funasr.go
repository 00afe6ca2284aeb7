package asr

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"autosubrt-server-go/internal/platform/config"
	"autosubrt-server-go/internal/platform/logging"
)

// funasrRecognizer 把音频文件以 multipart 上传到 FunASR HTTP 服务
type funasrRecognizer struct {
	client *resty.Client
	url    string
	model  string
	lang   string
	logger *logging.Logger
}

// NewFunASRRecognizer 创建 FunASR HTTP 提供者
func NewFunASRRecognizer(cfg config.ASRConfig, logger *logging.Logger) (Recognizer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("funasr url is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	client := resty.New().SetTimeout(timeout)
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &funasrRecognizer{
		client: client,
		url:    cfg.URL,
		model:  cfg.Model,
		lang:   cfg.Language,
		logger: logger,
	}, nil
}

func (r *funasrRecognizer) Name() string { return ProviderFunASR }

func (r *funasrRecognizer) Recognize(ctx context.Context, audioPath string) ([]RawResult, error) {
	form := map[string]string{}
	if r.model != "" {
		form["model"] = r.model
	}
	if r.lang != "" {
		form["language"] = r.lang
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetFile("audio", audioPath).
		SetFormData(form).
		Post(r.url)
	if err != nil {
		return nil, fmt.Errorf("funasr request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("funasr status %s: %s", resp.Status(), truncate(resp.String(), 256))
	}

	results, err := DecodeResults(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("decode funasr response: %w", err)
	}
	return results, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
