package asr

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"

	"autosubrt-server-go/internal/platform/config"
	"autosubrt-server-go/internal/platform/logging"
)

// openaiRecognizer 使用 OpenAI 兼容的 /audio/transcriptions 接口，按词返回时间戳
type openaiRecognizer struct {
	client *openai.Client
	model  string
	lang   string
	logger *logging.Logger
}

// NewOpenAIRecognizer 创建 OpenAI 兼容提供者，asr.url 为空时使用官方地址
func NewOpenAIRecognizer(cfg config.ASRConfig, logger *logging.Logger) (Recognizer, error) {
	if cfg.APIKey == "" && cfg.URL == "" {
		return nil, fmt.Errorf("openai api key is empty")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.URL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.URL, "/")
	}
	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "paraformer") {
		model = openai.Whisper1
	}
	return &openaiRecognizer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		lang:   cfg.Language,
		logger: logger,
	}, nil
}

func (r *openaiRecognizer) Name() string { return ProviderOpenAI }

func (r *openaiRecognizer) Recognize(ctx context.Context, audioPath string) ([]RawResult, error) {
	resp, err := r.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    r.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: r.lang,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	if len(resp.Words) == 0 {
		return []RawResult{{Text: resp.Text}}, nil
	}

	// 词之间用空格连接，保证与时间戳按位置对齐
	words := make([]string, 0, len(resp.Words))
	stamps := make([][]int64, 0, len(resp.Words))
	for _, w := range resp.Words {
		word := strings.Join(strings.Fields(w.Word), "")
		if word == "" {
			continue
		}
		words = append(words, word)
		stamps = append(stamps, []int64{secondsToMs(w.Start), secondsToMs(w.End)})
	}
	return []RawResult{{Text: strings.Join(words, " "), Timestamp: stamps}}, nil
}

func secondsToMs(s float64) int64 {
	return int64(math.Round(s * 1000))
}
