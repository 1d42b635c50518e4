package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"NovaWallet/internal/agent"
	"NovaWallet/internal/guardian"
	"NovaWallet/internal/intent"
	"NovaWallet/internal/observability/alerting"
	"NovaWallet/internal/observability/metrics"
	"NovaWallet/internal/preview"
	"NovaWallet/internal/storage/mysql"
	"NovaWallet/pkg/logger"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Services 汇总 API 层依赖的业务组件。Agent、Previews、Guardian 与 Resolver 必填。
type Services struct {
	Agent    *agent.Agent
	Previews *preview.Builder
	Guardian *guardian.Guardian
	Resolver *intent.Accumulator
	Audit    mysql.PreviewRepository
}

// Server 负责暴露 REST 接口，供钱包前端调用。
type Server struct {
	addr            string
	svc             Services
	metrics         *metrics.Metrics
	metricsPath     string
	shutdownTimeout time.Duration
	alerts          alerting.Dispatcher
	log             *slog.Logger
}

// Option 定义可选的 Server 配置。
type Option func(*Server)

// WithMetrics 启用 HTTP 指标与指标端点。
func WithMetrics(m *metrics.Metrics, path string) Option {
	return func(s *Server) {
		s.metrics = m
		if path != "" {
			s.metricsPath = path
		}
	}
}

// WithShutdownTimeout 设置优雅关闭的等待时间。
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithAlerts 在请求因服务端错误失败时发送告警。
func WithAlerts(d alerting.Dispatcher) Option {
	return func(s *Server) { s.alerts = d }
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, svc Services, opts ...Option) *Server {
	s := &Server{
		addr:            addr,
		svc:             svc,
		metricsPath:     "/metrics",
		shutdownTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.log == nil {
		s.log = logger.Named("api")
	}
	return s
}

// Routes 返回完整的路由树。
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle(s.metricsPath, s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(s.instrument("chat")).Post("/chat", s.handleChat)
		r.With(s.instrument("preview")).Post("/transactions/preview", s.handlePreview)
		r.With(s.instrument("validate")).Post("/guardian/validate", s.handleValidate)
		r.With(s.instrument("parse")).Post("/intents/parse", s.handleParse)
		r.With(s.instrument("chains")).Get("/chains", s.handleChains)
		r.With(s.instrument("previews")).Get("/previews", s.handleListPreviews)
	})
	return r
}

func (s *Server) instrument(name string) func(http.Handler) http.Handler {
	if s.metrics == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return metrics.HTTPMetricsMiddleware(s.metrics, name)
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api listening", slog.String("addr", s.addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("api shutdown incomplete", slog.Any("error", err))
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
