package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NovaWallet/pkg/logger"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// NATSStream is the JetStream stream holding preview events.
	NATSStream = "NOVA_PREVIEWS"
	// NATSSubjects is the subject pattern of the stream; events are published
	// to "nova.previews.{chainId}".
	NATSSubjects = "nova.previews.*"

	natsRetention = 7 * 24 * time.Hour
)

// NATSConfig 描述 NATS JetStream 的连接参数。
type NATSConfig struct {
	URL  string
	Name string
}

// NATSPublisher publishes preview events to NATS JetStream.
type NATSPublisher struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	log *slog.Logger
}

// NewNATSPublisher connects to NATS and makes sure the stream exists.
func NewNATSPublisher(ctx context.Context, cfg NATSConfig) (*NATSPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("NATS URL 不能为空")
	}
	name := cfg.Name
	if name == "" {
		name = "nova-preview-publisher"
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("连接 NATS 失败: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("创建 JetStream 失败: %w", err)
	}
	p := &NATSPublisher{nc: nc, js: js, log: logger.Named("events.nats")}
	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

func (p *NATSPublisher) ensureStream(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := p.js.Stream(ctx, NATSStream); err == nil {
		return nil
	}
	p.log.Info("creating JetStream stream", slog.String("stream", NATSStream))
	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        NATSStream,
		Description: "Nova transfer preview events",
		Subjects:    []string{NATSSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      natsRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("创建 JetStream stream 失败: %w", err)
	}
	return nil
}

// Publish sends the event to "nova.previews.{chainId}".
func (p *NATSPublisher) Publish(ctx context.Context, evt Event) error {
	data, err := encode(evt)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("nova.previews.%d", evt.ChainID)
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(evt.ID)); err != nil {
		return fmt.Errorf("NATS 发布事件失败: %w", err)
	}
	p.log.Debug("published preview event", slog.String("subject", subject), slog.String("preview_id", evt.PreviewID))
	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
	return nil
}
