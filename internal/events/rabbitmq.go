package events

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConfig 对应配置中的 events.rabbitmq。
type RabbitMQConfig struct {
	URL        string
	Queue      string
	Prefetch   int
	Durable    bool
	AutoDelete bool
}

// RabbitMQBus 通过默认交换机直接投递到一个队列，消费时手动确认。
type RabbitMQBus struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewRabbitMQBus(cfg RabbitMQConfig) (*RabbitMQBus, error) {
	if cfg.URL == "" {
		return nil, errors.New("events.rabbitmq.url 为空")
	}
	if cfg.Queue == "" {
		cfg.Queue = "nova.events"
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("连接 RabbitMQ 失败: %w", err)
	}
	ch, err := openChannel(conn, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &RabbitMQBus{conn: conn, ch: ch, queue: cfg.Queue}, nil
}

func openChannel(conn *amqp.Connection, cfg RabbitMQConfig) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("打开 RabbitMQ channel 失败: %w", err)
	}
	if cfg.Prefetch > 0 {
		if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("设置 prefetch=%d 失败: %w", cfg.Prefetch, err)
		}
	}
	if _, err := ch.QueueDeclare(cfg.Queue, cfg.Durable, cfg.AutoDelete, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("声明队列 %s 失败: %w", cfg.Queue, err)
	}
	return ch, nil
}

func (b *RabbitMQBus) Publish(ctx context.Context, evt Event) error {
	if b == nil || b.ch == nil {
		return errors.New("RabbitMQ 事件队列未就绪")
	}
	body, err := encode(evt)
	if err != nil {
		return err
	}
	return b.ch.PublishWithContext(ctx, "", b.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ID,
		Type:         string(evt.Type),
		Timestamp:    evt.CreatedAt,
		Body:         body,
	})
}

// Consume 处理成功则 ack；失败的消息重新入队一次，再次失败或无法解码则丢弃。
func (b *RabbitMQBus) Consume(ctx context.Context, workerCount int, handler Handler) error {
	if b == nil || b.ch == nil {
		return errors.New("RabbitMQ 事件队列未就绪")
	}
	msgs, err := b.ch.Consume(b.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("订阅队列 %s 失败: %w", b.queue, err)
	}

	in := make(chan delivery)
	go func() {
		defer close(in)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case in <- delivery{body: msg.Body, settle: settleFunc(msg)}:
				case <-ctx.Done():
					_ = msg.Nack(false, true)
					return
				}
			}
		}
	}()

	dispatch(ctx, workerCount, in, handler)
	return ctx.Err()
}

func settleFunc(msg amqp.Delivery) func(error) {
	return func(err error) {
		switch {
		case err == nil:
			_ = msg.Ack(false)
		case errors.Is(err, errMalformed):
			_ = msg.Nack(false, false)
		default:
			_ = msg.Nack(false, !msg.Redelivered)
		}
	}
}

func (b *RabbitMQBus) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	if b.ch != nil {
		errs = append(errs, b.ch.Close())
	}
	if b.conn != nil {
		errs = append(errs, b.conn.Close())
	}
	return errors.Join(errs...)
}
