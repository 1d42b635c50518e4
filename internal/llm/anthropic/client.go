package anthropic

import (
	"context"
	"errors"
	"strings"
	"time"

	xerrors "NovaWallet/internal/errors"
	"NovaWallet/internal/llm"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultModel     = "claude-3-5-haiku-latest"
	defaultMaxTokens = 1024
	defaultTimeout   = 60 * time.Second
)

// Config 描述调用 Anthropic Messages API 所需的信息。
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64
	Timeout   time.Duration
	// MaxRetries 为 0 时使用 SDK 默认值，负数表示不重试。
	MaxRetries int
}

// Client adapts the Anthropic Messages API to llm.Client.
type Client struct {
	api       sdk.Client
	model     string
	maxTokens int64
}

// NewClient 根据配置创建 Anthropic 客户端。
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供 Anthropic API Key")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	switch {
	case cfg.MaxRetries < 0:
		opts = append(opts, option.WithMaxRetries(0))
	case cfg.MaxRetries > 0:
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		api:       sdk.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Generate sends the conversation and returns the concatenated text blocks.
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	conversation := llm.Conversation(req)
	if len(conversation) == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "对话内容为空")
	}

	messages := make([]sdk.MessageParam, 0, len(conversation))
	for _, m := range conversation {
		block := sdk.NewTextBlock(m.Content)
		if m.Role == llm.RoleAssistant {
			messages = append(messages, sdk.NewAssistantMessage(block))
		} else {
			messages = append(messages, sdk.NewUserMessage(block))
		}
	}

	resp, err := c.api.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  messages,
		System: []sdk.TextBlockParam{
			{Text: llm.SystemPrompt(req)},
		},
	})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeBackendFailure, err, "请求 Anthropic 失败")
	}

	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" {
			if text := strings.TrimSpace(block.Text); text != "" {
				parts = append(parts, text)
			}
		}
	}
	if len(parts) == 0 {
		return nil, xerrors.New(xerrors.CodeBackendFailure, "Anthropic 响应内容为空")
	}

	model := string(resp.Model)
	if model == "" {
		model = c.model
	}
	return &llm.Response{Reply: strings.Join(parts, "\n\n"), Model: model}, nil
}
