package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent(id string) Event {
	return Event{
		ID:          id,
		Type:        TypePreviewCreated,
		PreviewID:   "p-" + id,
		Success:     true,
		Severity:    "medium",
		FromAddress: "0x1111111111111111111111111111111111111111",
		ToAddress:   "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
		Amount:      0.5,
		TokenSymbol: "ETH",
		ChainID:     1,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemoryBusDeliversBufferedEvents(t *testing.T) {
	bus := NewMemoryBus(4)
	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, sampleEvent("1")))
	require.NoError(t, bus.Publish(ctx, sampleEvent("2")))
	require.NoError(t, bus.Close())

	var mu sync.Mutex
	var got []string
	err := bus.Consume(ctx, 2, func(_ context.Context, evt Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, evt.ID)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, got)

	assert.Error(t, bus.Publish(ctx, sampleEvent("3")))
}

func TestRedisBusRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bus := NewRedisBusWithClient(client, "test:events", 100*time.Millisecond)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, bus.Publish(ctx, sampleEvent("a")))
	n, err := client.LLen(ctx, "test:events").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	received := make(chan Event, 1)
	consumeCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- bus.Consume(consumeCtx, 1, func(_ context.Context, evt Event) error {
			received <- evt
			return nil
		})
	}()

	select {
	case evt := <-received:
		assert.Equal(t, "p-a", evt.PreviewID)
		assert.Equal(t, TypePreviewCreated, evt.Type)
		assert.True(t, evt.CreatedAt.Equal(sampleEvent("a").CreatedAt))
	case <-ctx.Done():
		t.Fatal("event not consumed")
	}
	stop()
	assert.True(t, errors.Is(<-done, context.Canceled))
}

func TestNewSelectsDriver(t *testing.T) {
	pub, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, pub)

	pub, err = New(context.Background(), Config{Driver: "memory", Buffer: 2})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBus{}, pub)

	_, err = New(context.Background(), Config{Driver: "kafka"})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Driver: "nats"})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Driver: "rabbitmq"})
	assert.Error(t, err)
}

func TestRedisBusRequeuesFailedEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bus := NewRedisBusWithClient(client, "test:retry", 50*time.Millisecond)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.LPush(ctx, "test:retry", "{not json").Err())
	require.NoError(t, bus.Publish(ctx, sampleEvent("r")))

	var mu sync.Mutex
	attempts := 0
	consumeCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- bus.Consume(consumeCtx, 1, func(_ context.Context, evt Event) error {
			mu.Lock()
			defer mu.Unlock()
			attempts++
			if attempts == 1 {
				return errors.New("temporary")
			}
			stop()
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-ctx.Done():
		t.Fatal("event was not retried")
	}
	mu.Lock()
	assert.Equal(t, 2, attempts)
	mu.Unlock()

	n, err := client.LLen(ctx, "test:retry").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryBusSkipsHandlerFailures(t *testing.T) {
	bus := NewMemoryBus(2)
	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, sampleEvent("x")))
	require.NoError(t, bus.Publish(ctx, sampleEvent("y")))
	require.NoError(t, bus.Close())

	var mu sync.Mutex
	seen := 0
	require.NoError(t, bus.Consume(ctx, 1, func(context.Context, Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen++
		return errors.New("ignored")
	}))
	assert.Equal(t, 2, seen)
}
