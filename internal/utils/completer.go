package utils

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited 大模型服务端限流 (HTTP 429)
	ErrRateLimited = errors.New("llm: rate limited")
	// ErrEmptyCompletion 大模型返回空内容
	ErrEmptyCompletion = errors.New("llm: empty completion")
)

// Completer 大模型文本补全
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Provider() string
}

// CompleterOptions 各提供方共用的生成参数
type CompleterOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// CompleterConfig 创建 Completer 所需配置
type CompleterConfig struct {
	Provider      string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
	OllamaHost    string
	Options       CompleterOptions
}

// NewCompleter 按提供方创建 Completer
func NewCompleter(ctx context.Context, cfg CompleterConfig) (Completer, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Options), nil
	case "gemini":
		return NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.Options)
	case "ollama":
		return NewOllamaCompleter(cfg.OllamaHost, cfg.Options), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
