package asr

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"autosubrt-server-go/internal/domain/subtitle"
	"autosubrt-server-go/internal/platform/config"
	"autosubrt-server-go/internal/platform/errors"
	"autosubrt-server-go/internal/platform/logging"
)

const logTag = "ASR"

// Engine 进程内唯一的识别引擎。提供者只加载一次，加载失败后不会重试；
// 同时进行的识别数量受 MaxConcurrency 限制。
type Engine struct {
	cfg      config.ASRConfig
	registry *Registry
	logger   *logging.Logger

	once       sync.Once
	recognizer Recognizer
	loadErr    error

	sem *semaphore.Weighted
}

// NewEngine 创建引擎，需调用 Load 后才能识别
func NewEngine(cfg config.ASRConfig, registry *Registry, logger *logging.Logger) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	limit := cfg.MaxConcurrency
	if limit <= 0 {
		limit = 1
	}
	return &Engine{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		sem:      semaphore.NewWeighted(limit),
	}
}

// NewEngineWithRecognizer 使用已构造的提供者创建已加载的引擎
func NewEngineWithRecognizer(rec Recognizer, cfg config.ASRConfig, logger *logging.Logger) *Engine {
	e := NewEngine(cfg, nil, logger)
	e.once.Do(func() { e.recognizer = rec })
	return e
}

// Load 加载识别提供者，只执行一次
func (e *Engine) Load() error {
	e.once.Do(func() {
		e.logger.InfoTag(logTag, "load %s model %s...", e.cfg.Provider, e.cfg.Model)
		rec, err := e.registry.Create(e.cfg.Provider, e.cfg, e.logger)
		if err != nil {
			e.loadErr = errors.Wrap(errors.KindRecognition, "asr.load", "load recognizer "+e.cfg.Provider, err)
			e.logger.ErrorTag(logTag, "%s model load failed: %v", e.cfg.Provider, err)
			return
		}
		e.recognizer = rec
		e.logger.InfoTag(logTag, "%s model load success", rec.Name())
	})
	return e.loadErr
}

// Ready 引擎是否已成功加载
func (e *Engine) Ready() bool {
	return e.loadErr == nil && e.recognizer != nil
}

// Provider 当前提供者名称，未加载时返回配置值
func (e *Engine) Provider() string {
	if e.recognizer != nil {
		return e.recognizer.Name()
	}
	return e.cfg.Provider
}

// Recognize 识别音频文件并返回 Transcript。提供者返回的结果形状不符时得到空 Transcript。
func (e *Engine) Recognize(ctx context.Context, audioPath string) (subtitle.Transcript, error) {
	const op = "asr.recognize"
	if err := e.Load(); err != nil {
		return subtitle.Transcript{}, err
	}
	if e.recognizer == nil {
		return subtitle.Transcript{}, errors.New(errors.KindRecognition, op, "recognizer not loaded")
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return subtitle.Transcript{}, errors.Wrap(errors.KindRecognition, op, "wait for recognizer", err)
	}
	defer e.sem.Release(1)

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	started := time.Now()
	results, err := e.recognizer.Recognize(ctx, audioPath)
	if err != nil {
		return subtitle.Transcript{}, errors.Wrap(errors.KindRecognition, op, "recognize "+audioPath, err)
	}

	transcript := Extract(results)
	if len(results) == 0 {
		e.logger.WarnTag(logTag, "Empty result, audio=%s", audioPath)
	}
	e.logger.InfoTag(logTag, "text: %s, len(text): %d, len(timestamps): %d, cost: %s",
		transcript.Text, len([]rune(transcript.Text)), len(transcript.Timestamps), time.Since(started))
	return transcript, nil
}
