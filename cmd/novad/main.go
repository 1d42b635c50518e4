package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NovaWallet/internal/agent"
	"NovaWallet/internal/api"
	"NovaWallet/internal/config"
	"NovaWallet/internal/conversation"
	"NovaWallet/internal/events"
	"NovaWallet/internal/guardian"
	"NovaWallet/internal/intent"
	"NovaWallet/internal/knowledge"
	"NovaWallet/internal/llm"
	"NovaWallet/internal/llm/anthropic"
	"NovaWallet/internal/llm/openai"
	"NovaWallet/internal/observability/alerting"
	"NovaWallet/internal/observability/metrics"
	"NovaWallet/internal/preview"
	"NovaWallet/internal/slippage"
	"NovaWallet/internal/storage/mysql"
	"NovaWallet/internal/wallet"
	"NovaWallet/internal/web3"
	"NovaWallet/internal/web3/provider"
	"NovaWallet/pkg/logger"
)

// main 是 Nova 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("novad 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logging.Audit.Enabled,
			Path:       cfg.Logging.Audit.Path,
			MaxSizeMB:  cfg.Logging.Audit.MaxSizeMB,
			MaxBackups: cfg.Logging.Audit.MaxBackups,
			MaxAgeDays: cfg.Logging.Audit.MaxAgeDays,
			Compress:   cfg.Logging.Audit.Compress,
		},
	}); err != nil {
		return err
	}
	defer logger.Sync()
	lg := logger.Named("novad")

	if err := os.MkdirAll(cfg.Runtime.DataDir, 0o755); err != nil {
		return err
	}

	catalog, err := web3.LoadCatalogue(cfg.Chains.CatalogPath)
	if err != nil {
		return err
	}
	rpcOverrides, err := cfg.Chains.RPCMap()
	if err != nil {
		return err
	}
	chainRegistry, err := provider.NewRegistry(ctx, catalog, rpcOverrides)
	if err != nil {
		return err
	}
	defer chainRegistry.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(nil)
	}

	var balances wallet.BalanceLookup = wallet.NewChainBalanceLookup(chainRegistry)
	if !cfg.Cache.Disabled {
		cached, err := wallet.NewCachedBalanceLookup(balances, cfg.Cache.BalanceTTL())
		if err != nil {
			return err
		}
		defer cached.Close()
		balances = cached
	}

	gas, err := createGasEstimator(cfg, chainRegistry)
	if err != nil {
		return err
	}

	g := guardian.New(guardian.NewRules(catalog,
		guardian.WithGasBuffer(cfg.Guardian.GasBuffer),
		guardian.WithLowRemainder(cfg.Guardian.LowRemainder),
		guardian.WithLargeNativeAmount(cfg.Guardian.LargeNativeAmount),
	))
	builder := preview.NewBuilder(g, balances, gas,
		preview.WithLookupTimeout(time.Duration(cfg.Agent.LookupTimeoutSeconds)*time.Second))
	resolver := intent.NewAccumulator(intent.NewClassifier(intent.NewExtractor(catalog)))

	sessions, closeSessions, err := createSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	audit, closeAudit, err := createAuditRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAudit()

	publisher, err := events.New(ctx, events.Config{
		Driver: cfg.Events.Driver,
		Buffer: cfg.Events.Buffer,
		Redis: events.RedisConfig{
			Address:   cfg.Events.Redis.Address,
			Password:  cfg.Events.Redis.Password,
			DB:        cfg.Events.Redis.DB,
			Queue:     cfg.Events.Redis.Queue,
			BlockWait: time.Duration(cfg.Events.Redis.BlockWait) * time.Second,
		},
		RabbitMQ: events.RabbitMQConfig{
			URL:        cfg.Events.RabbitMQ.URL,
			Queue:      cfg.Events.RabbitMQ.Queue,
			Prefetch:   cfg.Events.RabbitMQ.Prefetch,
			Durable:    cfg.Events.RabbitMQ.Durable,
			AutoDelete: cfg.Events.RabbitMQ.AutoDelete,
		},
		NATS: events.NATSConfig{URL: cfg.Events.NATS.URL, Name: cfg.Events.NATS.Name},
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			lg.Warn("关闭事件通道失败", slog.Any("error", err))
		}
	}()

	alerts := createAlertDispatcher(cfg)

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()
	if consumer, ok := publisher.(events.Consumer); ok {
		go func() {
			if err := consumer.Consume(consumerCtx, cfg.Events.Workers, auditEvent); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("事件消费异常退出", slog.Any("error", err))
				if evt, ok := alerting.FromError(err, "events", map[string]string{"driver": cfg.Events.Driver}); ok && alerts != nil {
					_ = alerts.Notify(context.Background(), evt)
				}
			}
		}()
	}

	opts := []agent.Option{
		agent.WithBalanceLookup(balances),
		agent.WithSessionStore(sessions),
		agent.WithPublisher(publisher),
		agent.WithAuditRepository(audit),
		agent.WithMetrics(m),
		agent.WithHistoryWindow(cfg.Agent.HistoryWindow),
		agent.WithLLMTimeout(time.Duration(cfg.Agent.LLMTimeoutSeconds) * time.Second),
	}
	backend, err := createLLMClient(cfg)
	if err != nil {
		return err
	}
	if backend != nil {
		opts = append(opts, agent.WithBackend(backend))
	}
	if !cfg.Knowledge.Disabled {
		kb, err := knowledge.LoadStaticProvider(cfg.Knowledge.Source, cfg.Knowledge.MaxResults)
		if err != nil {
			return err
		}
		opts = append(opts, agent.WithKnowledge(kb))
	}
	if cfg.Slippage.BaseURL != "" {
		oracle, err := slippage.NewClient(slippage.Config{BaseURL: cfg.Slippage.BaseURL, Timeout: cfg.Slippage.Timeout()})
		if err != nil {
			return err
		}
		opts = append(opts, agent.WithOracle(oracle))
	}
	ag := agent.New(resolver, builder, opts...)

	serverOpts := []api.Option{api.WithShutdownTimeout(cfg.Server.ShutdownTimeout())}
	if m != nil {
		serverOpts = append(serverOpts, api.WithMetrics(m, cfg.Metrics.Path))
	}
	if alerts != nil {
		serverOpts = append(serverOpts, api.WithAlerts(alerts))
	}
	server := api.NewServer(cfg.Server.Address, api.Services{
		Agent:    ag,
		Previews: builder,
		Guardian: g,
		Resolver: resolver,
		Audit:    audit,
	}, serverOpts...)

	lg.Info("novad started",
		slog.Int("chains", len(chainRegistry.Chains())),
		slog.String("llm", cfg.LLM.Provider),
		slog.String("events", cfg.Events.Driver))

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func auditEvent(_ context.Context, evt events.Event) error {
	logger.Audit().Info("preview event",
		slog.String("event_id", evt.ID),
		slog.String("preview_id", evt.PreviewID),
		slog.String("session_id", evt.SessionID),
		slog.Bool("success", evt.Success),
		slog.String("severity", evt.Severity),
		slog.Int64("chain_id", evt.ChainID))
	return nil
}

func createAlertDispatcher(cfg *config.Config) alerting.Dispatcher {
	ac := cfg.Alerting
	if !ac.Enabled() {
		return nil
	}
	var notifiers []alerting.Notifier
	if ac.Log {
		notifiers = append(notifiers, alerting.LogNotifier{})
	}
	if ac.Slack.WebhookURL != "" {
		notifiers = append(notifiers, &alerting.SlackNotifier{
			Sender:    alerting.NewWebhookSender(ac.Slack.WebhookURL, nil).SlackSender(),
			ChannelID: ac.Slack.Channel,
		})
	}
	if ac.DingTalk.WebhookURL != "" {
		notifiers = append(notifiers, &alerting.DingTalkNotifier{
			Sender: alerting.NewWebhookSender(ac.DingTalk.WebhookURL, nil),
		})
	}
	return alerting.NewFanout(notifiers...)
}

func createGasEstimator(cfg *config.Config, source wallet.ClientSource) (wallet.GasEstimator, error) {
	switch cfg.Gas.Mode {
	case "rpc":
		return wallet.NewRPCGasEstimator(source), nil
	default:
		perChain, err := cfg.Gas.PerChainMap()
		if err != nil {
			return nil, err
		}
		return wallet.NewStaticGasEstimator(perChain, cfg.Gas.Default), nil
	}
}

func createSessionStore(ctx context.Context, cfg *config.Config) (conversation.Store, func(), error) {
	sc := cfg.Storage.Conversation
	switch sc.Driver {
	case "redis":
		store, err := conversation.NewRedisStore(ctx, conversation.RedisConfig{
			Address:   sc.Redis.Address,
			Password:  sc.Redis.Password,
			DB:        sc.Redis.DB,
			KeyPrefix: sc.Redis.KeyPrefix,
			TTL:       time.Duration(sc.TTLSeconds) * time.Second,
			MaxTurns:  sc.MaxTurns,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return conversation.NewMemoryStore(sc.MaxTurns), func() {}, nil
	}
}

func createAuditRepository(ctx context.Context, cfg *config.Config) (mysql.PreviewRepository, func(), error) {
	ac := cfg.Storage.Audit
	switch ac.Driver {
	case "mysql":
		repo, err := mysql.NewSQLPreviewRepository(ctx, mysql.Config{
			DSN:             ac.DSN,
			MaxOpenConns:    ac.MaxOpenConns,
			MaxIdleConns:    ac.MaxIdleConns,
			ConnMaxLifetime: time.Duration(ac.ConnMaxLifetimeSeconds) * time.Second,
			ConnMaxIdleTime: time.Duration(ac.ConnMaxIdleTimeSeconds) * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	default:
		repo, err := mysql.NewMemoryPreviewRepository(cfg.Runtime.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}
}

func createLLMClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.LLM.Provider {
	case "", "none":
		return nil, nil
	case "openai":
		if cfg.LLM.OpenAI.APIKey == "" {
			return nil, errors.New("OpenAI provider 需要配置 api_key 或 api_key_env")
		}
		return openai.NewClient(openai.Config{
			APIKey:  cfg.LLM.OpenAI.APIKey,
			BaseURL: cfg.LLM.OpenAI.BaseURL,
			Model:   cfg.LLM.OpenAI.Model,
			Timeout: cfg.LLM.OpenAI.Timeout(),
		})
	case "anthropic":
		if cfg.LLM.Anthropic.APIKey == "" {
			return nil, errors.New("Anthropic provider 需要配置 api_key 或 api_key_env")
		}
		return anthropic.NewClient(anthropic.Config{
			APIKey:     cfg.LLM.Anthropic.APIKey,
			BaseURL:    cfg.LLM.Anthropic.BaseURL,
			Model:      cfg.LLM.Anthropic.Model,
			MaxTokens:  cfg.LLM.Anthropic.MaxTokens,
			MaxRetries: cfg.LLM.Anthropic.MaxRetries,
			Timeout:    cfg.LLM.Anthropic.Timeout(),
		})
	default:
		return nil, fmt.Errorf("未知的大模型 provider: %s", cfg.LLM.Provider)
	}
}
