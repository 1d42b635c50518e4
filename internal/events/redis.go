package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig 对应配置中的 events.redis。
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	Queue     string
	BlockWait time.Duration
}

// RedisBus 把事件放在一个 Redis list 里：LPUSH 写入，BRPOP 取出。
// 处理失败的事件会被 RPUSH 回队尾，下一次最先取到。
type RedisBus struct {
	client *redis.Client
	queue  string
	wait   time.Duration
}

func NewRedisBus(ctx context.Context, cfg RedisConfig) (*RedisBus, error) {
	if cfg.Address == "" {
		return nil, errors.New("events.redis.address 为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redis %s 不可达: %w", cfg.Address, err)
	}
	return NewRedisBusWithClient(client, cfg.Queue, cfg.BlockWait), nil
}

func NewRedisBusWithClient(client *redis.Client, queue string, wait time.Duration) *RedisBus {
	b := &RedisBus{client: client, queue: queue, wait: wait}
	if b.queue == "" {
		b.queue = "nova:events"
	}
	if b.wait <= 0 {
		b.wait = 5 * time.Second
	}
	return b
}

func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	body, err := encode(evt)
	if err != nil {
		return err
	}
	if err := b.client.LPush(ctx, b.queue, body).Err(); err != nil {
		return fmt.Errorf("写入 Redis 队列 %s 失败: %w", b.queue, err)
	}
	return nil
}

// Consume 由单个协程 BRPOP 取消息，再分发给 workerCount 个处理协程。
func (b *RedisBus) Consume(ctx context.Context, workerCount int, handler Handler) error {
	in := make(chan delivery)
	fetched := make(chan error, 1)
	go func() {
		defer close(in)
		fetched <- b.fetch(ctx, in)
	}()

	dispatch(ctx, workerCount, in, handler)
	if err := <-fetched; err != nil {
		return err
	}
	return ctx.Err()
}

func (b *RedisBus) fetch(ctx context.Context, out chan<- delivery) error {
	for ctx.Err() == nil {
		values, err := b.client.BRPop(ctx, b.wait, b.queue).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("读取 Redis 队列 %s 失败: %w", b.queue, err)
		}
		if len(values) != 2 {
			continue
		}

		raw := values[1]
		d := delivery{body: []byte(raw), settle: func(err error) {
			if err != nil && !errors.Is(err, errMalformed) {
				b.requeue(ctx, raw)
			}
		}}
		select {
		case out <- d:
		case <-ctx.Done():
			b.requeue(ctx, raw)
			return nil
		}
	}
	return nil
}

func (b *RedisBus) requeue(ctx context.Context, raw string) {
	_ = b.client.RPush(context.WithoutCancel(ctx), b.queue, raw).Err()
}

func (b *RedisBus) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}
