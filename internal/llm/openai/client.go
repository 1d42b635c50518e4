// Package openai 适配任何兼容 OpenAI Chat Completions 协议的服务。
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	xerrors "NovaWallet/internal/errors"
	"NovaWallet/internal/llm"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModelName = "gpt-4o-mini"
	defaultTimeout   = 60 * time.Second
	temperature      = 0.4
	maxErrorBody     = 2048
)

// Config 为空的字段使用默认值；APIKey 必填。
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("openai: API key 为空")
	}
	c := &Client{
		apiKey:     key,
		endpoint:   strings.TrimRight(orDefault(cfg.BaseURL, defaultBaseURL), "/") + "/chat/completions",
		model:      orDefault(cfg.Model, defaultModelName),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	if cfg.Timeout > 0 {
		c.httpClient.Timeout = cfg.Timeout
	}
	return c, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

// Generate 发送系统提示词与对话历史，返回第一条候选回复。
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	body, err := json.Marshal(c.chatRequest(req))
	if err != nil {
		return nil, fmt.Errorf("openai: 序列化请求失败: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: 构建请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, xerrors.Wrap(xerrors.CodeTimeout, err, "openai 请求超时")
		}
		return nil, xerrors.Wrap(xerrors.CodeBackendFailure, err, "openai 请求失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, statusError(resp)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeBackendFailure, err, "openai 响应无法解析")
	}
	var reply string
	if len(decoded.Choices) > 0 {
		reply = strings.TrimSpace(decoded.Choices[0].Message.Content)
	}
	if reply == "" {
		return nil, xerrors.New(xerrors.CodeBackendFailure, "openai 没有返回内容")
	}
	return &llm.Response{Reply: reply, Model: orDefault(decoded.Model, c.model)}, nil
}

func (c *Client) chatRequest(req llm.Request) chatRequest {
	turns := llm.Conversation(req)
	msgs := make([]chatMessage, 0, len(turns)+1)
	msgs = append(msgs, chatMessage{Role: "system", Content: llm.SystemPrompt(req)})
	for _, m := range turns {
		msgs = append(msgs, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return chatRequest{Model: c.model, Messages: msgs, Temperature: temperature}
}

// statusError 把 HTTP 状态映射为错误码：限流和 5xx 可重试，其它 4xx 不可重试。
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := strings.TrimSpace(string(raw))
	var ae apiError
	if json.Unmarshal(raw, &ae) == nil && ae.Error.Message != "" {
		detail = ae.Error.Message
	}
	msg := fmt.Sprintf("openai 返回 %d: %s", resp.StatusCode, detail)

	switch {
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return xerrors.New(xerrors.CodeTimeout, msg)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return xerrors.New(xerrors.CodeBackendFailure, msg)
	default:
		return xerrors.New(xerrors.CodeBackendFailure, msg, xerrors.WithRetryable(false))
	}
}
