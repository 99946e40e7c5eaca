package huggingface

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	lchf "github.com/tmc/langchaingo/llms/huggingface"

	"Sentinel-X/internal/llm"
)

const (
	defaultBaseURL   = "https://api-inference.huggingface.co"
	defaultModelName = "mistralai/Mistral-7B-Instruct-v0.2"
	defaultPriority  = 3
	providerName     = "huggingface"
)

// Config 描述 Hugging Face Inference API 后端。
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Priority int
}

// Client 通过 langchaingo 调用 {base}/models/{model} 文本生成接口。
type Client struct {
	llm      *lchf.LLM
	model    string
	priority int
}

var _ llm.Provider = (*Client)(nil)

// NewClient 根据配置创建客户端。
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供 Hugging Face API Key")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.Trim(strings.TrimSpace(cfg.Model), "/")
	if model == "" {
		model = defaultModelName
	}
	priority := cfg.Priority
	if priority == 0 {
		priority = defaultPriority
	}

	client, err := lchf.New(
		lchf.WithToken(apiKey),
		lchf.WithURL(baseURL),
		lchf.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("创建 Hugging Face 客户端失败: %w", err)
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
	var callOpts []llms.CallOption
	if opts.MaxTokens != nil {
		callOpts = append(callOpts, llms.WithMaxTokens(*opts.MaxTokens))
	}
	if opts.Temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(*opts.Temperature))
	}

	messages := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}
	resp, err := c.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", fmt.Errorf("请求 Hugging Face 失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("Hugging Face 响应为空")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
