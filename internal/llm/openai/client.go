package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"Sentinel-X/internal/llm"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModelName = "gpt-4o-mini"
	defaultName      = "openai"
)

// Config 描述一个 OpenAI 兼容的 Chat Completions 后端，Groq 与 OpenAI 均通过它接入。
type Config struct {
	Name       string
	APIKey     string
	BaseURL    string
	Model      string
	Priority   int
	HTTPClient *http.Client
}

// Client 通过官方 SDK 调用 OpenAI 兼容接口。
type Client struct {
	name     string
	model    string
	priority int
	client   sdk.Client
}

var _ llm.Provider = (*Client)(nil)

// NewClient 根据配置创建客户端。重试交由调度链处理，SDK 自身不再重试。
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供 API Key")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/") + "/"

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModelName
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = defaultName
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		name:     name,
		model:    model,
		priority: cfg.Priority,
		client:   sdk.NewClient(opts...),
	}, nil
}

// Name 实现 llm.Provider。
func (c *Client) Name() string { return c.name }

// Model 实现 llm.Provider。
func (c *Client) Model() string { return c.model }

// Priority 实现 llm.Provider。
func (c *Client) Priority() int { return c.priority }

// Complete 以单条 user 消息请求补全并返回首个 choice 的文本。
func (c *Client) Complete(ctx context.Context, prompt string, opts llm.CallOptions) (string, error) {
	params := sdk.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{{
			OfUser: &sdk.ChatCompletionUserMessageParam{
				Content: sdk.ChatCompletionUserMessageParamContentUnion{OfString: sdk.String(prompt)},
			},
		}},
	}
	if opts.MaxTokens != nil {
		params.MaxTokens = sdk.Int(int64(*opts.MaxTokens))
	}
	if opts.Temperature != nil {
		params.Temperature = sdk.Float(*opts.Temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("请求 %s 失败: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s 响应中没有有效的 choices", c.name)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
