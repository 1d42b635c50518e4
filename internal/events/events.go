package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"NovaWallet/pkg/logger"
)

// Type 标识事件类型。
type Type string

const (
	// TypePreviewCreated 在每次生成转账预览后发布。
	TypePreviewCreated Type = "preview.created"
)

// Event 描述一次已生成的转账预览，供下游审计或通知服务消费。
type Event struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	SessionID   string    `json:"sessionId,omitempty"`
	PreviewID   string    `json:"previewId"`
	Success     bool      `json:"success"`
	Severity    string    `json:"severity"`
	FromAddress string    `json:"fromAddress"`
	ToAddress   string    `json:"toAddress"`
	Amount      float64   `json:"amount"`
	TokenSymbol string    `json:"tokenSymbol"`
	ChainID     int64     `json:"chainId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Handler 处理一条事件。
type Handler func(ctx context.Context, evt Event) error

// Publisher 负责向消息通道投递事件。
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Consumer 负责从消息通道消费事件。
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Bus 同时具备发布与消费能力。
type Bus interface {
	Publisher
	Consumer
}

// errMalformed 标记无法解码的消息，这类消息不会重新投递。
var errMalformed = errors.New("malformed event")

// delivery 是从某个通道取出的一条原始消息，settle 回报处理结果。
type delivery struct {
	body   []byte
	settle func(error)
}

// dispatch 用 workers 个协程处理 in 中的消息，直到 ctx 结束或 in 关闭。
func dispatch(ctx context.Context, workers int, in <-chan delivery, handler Handler) {
	if workers <= 0 {
		workers = 1
	}
	log := logger.Named("events")
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-in:
					if !ok {
						return
					}
					err := handleOne(ctx, log, d.body, handler)
					if d.settle != nil {
						d.settle(err)
					}
				}
			}
		}()
	}
	wg.Wait()
}

func handleOne(ctx context.Context, log *slog.Logger, body []byte, handler Handler) error {
	evt, err := decode(body)
	if err != nil {
		log.Warn("dropping malformed event", slog.Any("error", err))
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if err := handler(ctx, evt); err != nil {
		log.Warn("event handler failed",
			slog.String("event_id", evt.ID),
			slog.String("preview_id", evt.PreviewID),
			slog.Any("error", err))
		return err
	}
	return nil
}

func encode(evt Event) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("序列化事件失败: %w", err)
	}
	return data, nil
}

func decode(data []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return Event{}, fmt.Errorf("解析事件失败: %w", err)
	}
	return evt, nil
}

// Nop 丢弃所有事件。
type Nop struct{}

// Publish 忽略事件。
func (Nop) Publish(context.Context, Event) error { return nil }

// Close 无操作。
func (Nop) Close() error { return nil }
