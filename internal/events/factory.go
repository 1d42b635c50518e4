package events

import (
	"context"
	"fmt"
	"strings"
)

// Config 选择事件通道实现。
type Config struct {
	Driver   string
	Buffer   int
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	NATS     NATSConfig
}

// New 根据驱动名称创建事件发布器。空驱动或 "none" 返回 Nop。
func New(ctx context.Context, cfg Config) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return Nop{}, nil
	case "memory":
		return NewMemoryBus(cfg.Buffer), nil
	case "redis":
		return NewRedisBus(ctx, cfg.Redis)
	case "rabbitmq", "amqp":
		return NewRabbitMQBus(cfg.RabbitMQ)
	case "nats":
		return NewNATSPublisher(ctx, cfg.NATS)
	default:
		return nil, fmt.Errorf("不支持的事件驱动: %s", cfg.Driver)
	}
}
