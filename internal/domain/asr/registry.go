package asr

import (
	"fmt"
	"sort"
	"sync"

	"autosubrt-server-go/internal/platform/config"
	"autosubrt-server-go/internal/platform/logging"
)

// Factory 根据配置创建识别提供者
type Factory func(cfg config.ASRConfig, logger *logging.Logger) (Recognizer, error)

// Registry ASR 提供者注册器
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry 创建注册器并注册内置提供者
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.factories[ProviderExec] = NewExecRecognizer
	r.factories[ProviderFunASR] = NewFunASRRecognizer
	r.factories[ProviderOpenAI] = NewOpenAIRecognizer
	return r
}

// Register 注册提供者工厂，重名返回错误
func (r *Registry) Register(name string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("ASR provider factory '%s' already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create 创建提供者实例
func (r *Registry) Create(name string, cfg config.ASRConfig, logger *logging.Logger) (Recognizer, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("ASR provider factory '%s' not found", name)
	}
	return factory(cfg, logger)
}

// List 列出已注册的提供者名称
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
