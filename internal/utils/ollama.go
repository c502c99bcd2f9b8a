package utils

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// OllamaGenerateRequest Ollama /api/generate 请求结构
type OllamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// OllamaGenerateResponse Ollama /api/generate 响应结构
type OllamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// OllamaCompleter 调用本地 Ollama 生成文本
type OllamaCompleter struct {
	host       string
	opts       CompleterOptions
	httpClient *http.Client
}

func NewOllamaCompleter(host string, opts CompleterOptions) *OllamaCompleter {
	if host == "" {
		host = "http://localhost:11434"
	}
	return &OllamaCompleter{
		host:       strings.TrimRight(host, "/"),
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

func (c *OllamaCompleter) Provider() string { return "ollama" }

func (c *OllamaCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := OllamaGenerateRequest{
		Model:  c.opts.Model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": c.opts.Temperature,
		},
	}
	if c.opts.MaxTokens > 0 {
		reqBody.Options["num_predict"] = c.opts.MaxTokens
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post request to ollama failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned error status: %d", resp.StatusCode)
	}

	var result OllamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response failed: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("ollama error: %s", result.Error)
	}

	text := strings.TrimSpace(result.Response)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
