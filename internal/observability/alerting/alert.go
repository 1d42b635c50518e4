package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	xerrors "NovaWallet/internal/errors"
	"NovaWallet/pkg/logger"
)

// Channel 表示通知渠道。
type Channel string

// 支持的通知渠道
const (
	ChannelLog      Channel = "log"
	ChannelDingTalk Channel = "dingtalk"
	ChannelSlack    Channel = "slack"
)

// Event 描述一次需要告警的事件。
type Event struct {
	Code       xerrors.Code
	Message    string
	Severity   xerrors.Severity
	Source     string
	Metadata   map[string]string
	OccurredAt time.Time
}

// FromError 把需要告警的错误转换为事件，错误自带的 metadata 会被调用方传入的同名键覆盖。
func FromError(err error, source string, metadata map[string]string) (Event, bool) {
	if err == nil {
		return Event{}, false
	}
	evt := Event{
		Code:       xerrors.CodeOf(err),
		Message:    err.Error(),
		Severity:   xerrors.SeverityOf(err),
		Source:     source,
		Metadata:   metadata,
		OccurredAt: time.Now().UTC(),
	}
	e, typed := xerrors.From(err)
	if !typed {
		return evt, xerrors.AttributesOf(evt.Code).Alert
	}
	if !e.ShouldAlert() {
		return Event{}, false
	}
	if own := e.Metadata(); len(own) > 0 {
		maps.Copy(own, metadata)
		evt.Metadata = own
	}
	return evt, true
}

// Notifier 是单个通知渠道。
type Notifier interface {
	Channel() Channel
	Notify(ctx context.Context, event Event) error
}

type Dispatcher interface {
	Notify(ctx context.Context, event Event) error
}

// FanoutDispatcher 并发通知所有渠道，每个渠道最多注册一个通知器。
type FanoutDispatcher struct {
	notifiers map[Channel]Notifier
}

func NewFanout(notifiers ...Notifier) *FanoutDispatcher {
	d := &FanoutDispatcher{notifiers: make(map[Channel]Notifier, len(notifiers))}
	for _, n := range notifiers {
		if n != nil {
			d.notifiers[n.Channel()] = n
		}
	}
	return d
}

func (d *FanoutDispatcher) Channels() []Channel {
	if d == nil {
		return nil
	}
	var keys []Channel
	for k := range d.notifiers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Notify 等待所有渠道返回，失败的渠道按名称顺序合并为一个错误。
func (d *FanoutDispatcher) Notify(ctx context.Context, event Event) error {
	if d == nil || len(d.notifiers) == 0 {
		return nil
	}
	channels := d.Channels()
	errs := make([]error, len(channels))
	var wg sync.WaitGroup
	for i, ch := range channels {
		i, ch := i, ch
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.notifiers[ch].Notify(ctx, event); err != nil {
				errs[i] = fmt.Errorf("channel %s: %w", ch, err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// LogNotifier 将告警写入审计日志。
type LogNotifier struct{}

func (LogNotifier) Channel() Channel { return ChannelLog }

func (LogNotifier) Notify(_ context.Context, event Event) error {
	attrs := []any{
		slog.String("code", string(event.Code)),
		slog.String("severity", string(event.Severity)),
		slog.String("source", event.Source),
		slog.Time("occurred_at", event.OccurredAt),
	}
	for _, k := range sortedKeys(event.Metadata) {
		attrs = append(attrs, slog.String(k, event.Metadata[k]))
	}
	logger.Audit().Error("alert: "+event.Message, attrs...)
	return nil
}

// DingTalkSender 负责向钉钉机器人发送消息。
type DingTalkSender interface {
	Send(ctx context.Context, content string) error
}

// DingTalkNotifier 通过钉钉机器人发送告警。
type DingTalkNotifier struct {
	Sender DingTalkSender
}

func (n *DingTalkNotifier) Channel() Channel { return ChannelDingTalk }

// Notify 发送钉钉消息。
func (n *DingTalkNotifier) Notify(ctx context.Context, event Event) error {
	if n == nil || n.Sender == nil {
		logger.L().Warn("DingTalkNotifier 未正确配置，跳过发送", slog.String("code", string(event.Code)))
		return nil
	}
	return n.Sender.Send(ctx, render(event))
}

// SlackSender 负责向 Slack 渠道发送消息。
type SlackSender interface {
	Send(ctx context.Context, channel, content string) error
}

// SlackNotifier 通过 Slack 发送告警。
type SlackNotifier struct {
	Sender    SlackSender
	ChannelID string
}

func (n *SlackNotifier) Channel() Channel { return ChannelSlack }

// Notify 发送 Slack 消息。
func (n *SlackNotifier) Notify(ctx context.Context, event Event) error {
	if n == nil || n.Sender == nil {
		logger.L().Warn("SlackNotifier 未正确配置，跳过发送", slog.String("code", string(event.Code)))
		return nil
	}
	content := fmt.Sprintf("*[%s]* %s - %s (%s)", event.Severity, event.Code, event.Message, event.Source)
	return n.Sender.Send(ctx, n.ChannelID, content)
}

func render(event Event) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n来源: %s\n时间: %s\n%s",
		event.Severity, event.Code, event.Source, event.OccurredAt.Format(time.RFC3339), event.Message)
	for _, k := range sortedKeys(event.Metadata) {
		fmt.Fprintf(&sb, "\n- %s: %s", k, event.Metadata[k])
	}
	return sb.String()
}

func sortedKeys(m map[string]string) []string {
	var keys []string
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
