package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookSender 通过 HTTP POST 将告警投递到机器人 webhook，
// 同时满足 DingTalkSender 与 SlackSender。
type WebhookSender struct {
	URL    string
	Client *http.Client
}

// NewWebhookSender 创建 webhook 发送器；client 为空时使用 10 秒超时的默认客户端。
func NewWebhookSender(url string, client *http.Client) *WebhookSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookSender{URL: url, Client: client}
}

type dingTalkPayload struct {
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

type slackPayload struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
}

// Send 以钉钉文本消息格式发送。
func (s *WebhookSender) Send(ctx context.Context, content string) error {
	var p dingTalkPayload
	p.MsgType = "text"
	p.Text.Content = content
	return s.post(ctx, p)
}

// SlackSender 返回使用 Slack incoming webhook 格式的发送器。
func (s *WebhookSender) SlackSender() SlackSender {
	return slackWebhook{s}
}

type slackWebhook struct{ *WebhookSender }

func (s slackWebhook) Send(ctx context.Context, channel, content string) error {
	return s.post(ctx, slackPayload{Channel: channel, Text: content})
}

func (s *WebhookSender) post(ctx context.Context, payload any) error {
	if s == nil || s.URL == "" {
		return fmt.Errorf("webhook url 未配置")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("编码告警消息失败: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建告警请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("发送告警失败: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("告警 webhook 返回状态码 %d", resp.StatusCode)
	}
	return nil
}
