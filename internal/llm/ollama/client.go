package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"

	"Sentinel-X/internal/llm"
)

const (
	defaultModelName = "llama3"
	defaultPriority  = 2
	providerName     = "ollama"
)

// Config 描述本地 Ollama 服务。
type Config struct {
	BaseURL    string
	Model      string
	Priority   int
	HTTPClient *http.Client
}

// Client 通过 langchaingo 调用 Ollama 的对话接口。
type Client struct {
	llm      *lcollama.LLM
	model    string
	priority int
}

var _ llm.Provider = (*Client)(nil)

// NewClient 根据配置创建客户端，BaseURL 为空时返回错误。
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("未提供 Ollama 地址")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModelName
	}
	priority := cfg.Priority
	if priority == 0 {
		priority = defaultPriority
	}

	opts := []lcollama.Option{
		lcollama.WithServerURL(baseURL),
		lcollama.WithModel(model),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, lcollama.WithHTTPClient(cfg.HTTPClient))
	}
	client, err := lcollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("创建 Ollama 客户端失败: %w", err)
	}
	return &Client{llm: client, model: model, priority: priority}, nil
}

// Name 实现 llm.Provider。
func (c *Client) Name() string { return providerName }

// Model 实现 llm.Provider。
func (c *Client) Model() string { return c.model }

// Priority 实现 llm.Provider。
func (c *Client) Priority() int { return c.priority }

// Complete 实现 llm.Provider。
func (c *Client) Complete(ctx context.Context, prompt string, opts llm.CallOptions) (string, error) {
	messages := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}

	resp, err := c.llm.GenerateContent(ctx, messages, callOptions(opts)...)
	if err != nil {
		return "", fmt.Errorf("请求 Ollama 失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("Ollama 响应为空")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func callOptions(opts llm.CallOptions) []llms.CallOption {
	var out []llms.CallOption
	if opts.MaxTokens != nil {
		out = append(out, llms.WithMaxTokens(*opts.MaxTokens))
	}
	if opts.Temperature != nil {
		out = append(out, llms.WithTemperature(*opts.Temperature))
	}
	return out
}
