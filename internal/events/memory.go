package events

import (
	"context"
	"errors"
	"sync"
)

const defaultMemoryBuffer = 64

// MemoryBus 是进程内的有界事件队列。处理失败的事件直接丢弃。
type MemoryBus struct {
	mu     sync.RWMutex
	queue  chan delivery
	closed bool
}

func NewMemoryBus(size int) *MemoryBus {
	if size <= 0 {
		size = defaultMemoryBuffer
	}
	return &MemoryBus{queue: make(chan delivery, size)}
}

// Publish 在缓冲区满时阻塞，直到 ctx 结束。
func (b *MemoryBus) Publish(ctx context.Context, evt Event) error {
	body, err := encode(evt)
	if err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return errors.New("内存事件队列已关闭")
	}
	select {
	case b.queue <- delivery{body: body}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume 在 ctx 结束或队列关闭且排空后返回。
func (b *MemoryBus) Consume(ctx context.Context, workerCount int, handler Handler) error {
	dispatch(ctx, workerCount, b.queue, handler)
	return ctx.Err()
}

// Close 之后不再接受新事件，已缓冲的仍会被消费。
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	return nil
}
