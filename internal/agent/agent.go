package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"NovaWallet/internal/conversation"
	xerrors "NovaWallet/internal/errors"
	"NovaWallet/internal/events"
	"NovaWallet/internal/intent"
	"NovaWallet/internal/knowledge"
	"NovaWallet/internal/llm"
	"NovaWallet/internal/observability/metrics"
	"NovaWallet/internal/preview"
	"NovaWallet/internal/slippage"
	"NovaWallet/internal/storage/mysql"
	"NovaWallet/internal/wallet"
	"NovaWallet/pkg/logger"
)

// ReplyKind 区分回复的类型。
type ReplyKind string

const (
	// ReplyDirect 是无需外部服务的直接回复，例如提示连接钱包或补全参数。
	ReplyDirect ReplyKind = "direct"
	// ReplyPreview 携带一份转账预览，等待用户确认。
	ReplyPreview ReplyKind = "preview"
	// ReplyConsultation 携带交易所报价对比。
	ReplyConsultation ReplyKind = "consultation"
	// ReplyDefer 表示交给对话后端生成回复。
	ReplyDefer ReplyKind = "defer"
)

// Request 是一轮用户输入。
type Request struct {
	SessionID string            `json:"sessionId,omitempty"`
	Utterance string            `json:"message"`
	History   []llm.Message     `json:"history,omitempty"`
	Wallet    llm.WalletContext `json:"walletContext"`
}

// Reply 是 Agent 对一轮输入的处理结果。
type Reply struct {
	Kind       ReplyKind                   `json:"kind"`
	Intent     intent.Kind                 `json:"intent"`
	Confidence float64                     `json:"confidence"`
	Entities   intent.Entities             `json:"entities"`
	Message    string                      `json:"message"`
	Preview    *preview.TransactionPreview `json:"preview,omitempty"`
	Quotes     *slippage.Response          `json:"quotes,omitempty"`
	Backend    string                      `json:"backend,omitempty"`
}

// Agent 是对话入口：解析意图、生成转账预览、查询报价，或交给对话后端。
type Agent struct {
	resolver      *intent.Accumulator
	previews      *preview.Builder
	balances      wallet.BalanceLookup
	oracle        slippage.Oracle
	backend       llm.Client
	knowledge     knowledge.Provider
	sessions      conversation.Store
	publisher     events.Publisher
	audit         mysql.PreviewRepository
	metrics       *metrics.Metrics
	historyWindow int
	llmTimeout    time.Duration
	now           func() time.Time
	log           *slog.Logger
}

// Option 定义可选的 Agent 配置。
type Option func(*Agent)

// defaultHistoryWindow 是参与意图累积的历史用户消息数量。
const defaultHistoryWindow = 6

// WithBackend 配置对话后端。
func WithBackend(client llm.Client) Option {
	return func(a *Agent) { a.backend = client }
}

// WithKnowledge 配置知识库，命中的条目会作为参考资料交给对话后端。
func WithKnowledge(p knowledge.Provider) Option {
	return func(a *Agent) { a.knowledge = p }
}

// WithBalanceLookup 配置余额查询，用于回答余额问题。
func WithBalanceLookup(lookup wallet.BalanceLookup) Option {
	return func(a *Agent) { a.balances = lookup }
}

// WithOracle 配置滑点预测服务。
func WithOracle(oracle slippage.Oracle) Option {
	return func(a *Agent) { a.oracle = oracle }
}

// WithSessionStore 配置会话存储；配置后 Request.History 仅在会话为空时使用。
func WithSessionStore(store conversation.Store) Option {
	return func(a *Agent) { a.sessions = store }
}

// WithPublisher 配置预览事件发布器。
func WithPublisher(p events.Publisher) Option {
	return func(a *Agent) { a.publisher = p }
}

// WithAuditRepository 配置预览审计仓库。
func WithAuditRepository(repo mysql.PreviewRepository) Option {
	return func(a *Agent) { a.audit = repo }
}

// WithMetrics 配置指标收集。
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// WithHistoryWindow 设置参与意图累积的历史用户消息数量。
func WithHistoryWindow(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.historyWindow = n
		}
	}
}

// WithLLMTimeout 设置调用对话后端的超时时间。
func WithLLMTimeout(timeout time.Duration) Option {
	return func(a *Agent) {
		if timeout < 0 {
			timeout = 0
		}
		a.llmTimeout = timeout
	}
}

// WithClock 指定时钟，主要用于测试。
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

// New 创建一个 Agent。
func New(resolver *intent.Accumulator, previews *preview.Builder, opts ...Option) *Agent {
	ag := &Agent{
		resolver:      resolver,
		previews:      previews,
		historyWindow: defaultHistoryWindow,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ag)
		}
	}
	if ag.log == nil {
		ag.log = logger.Named("agent")
	}
	return ag
}

// Handle resolves the utterance against the conversation so far and
// produces a reply. Collaborator failures while building a transfer preview
// are returned as errors; everything else degrades to a message.
func (a *Agent) Handle(ctx context.Context, req Request) (*Reply, error) {
	if a.resolver == nil || a.previews == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "Agent 未初始化")
	}
	req.Utterance = strings.TrimSpace(req.Utterance)
	if req.Utterance == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "消息内容不能为空")
	}

	history := a.loadHistory(ctx, req)
	conv := append(a.window(history), req.Utterance)
	res := a.resolver.Resolve(conv)
	a.metrics.RecordIntent(string(res.Intent))

	a.log.Debug("intent resolved",
		slog.String("session_id", req.SessionID),
		slog.String("intent", string(res.Intent)),
		slog.Float64("confidence", res.Confidence),
		slog.Int("turns", len(conv)))

	var (
		reply *Reply
		err   error
	)
	switch res.Intent {
	case intent.KindSend:
		reply, err = a.handleSend(ctx, req, res)
	case intent.KindGetBalance:
		reply, err = a.handleBalance(ctx, req, history, res)
	case intent.KindConsultSlippage:
		reply, err = a.handleConsult(ctx, req, history, res)
	default:
		reply, err = a.deferToBackend(ctx, req, history, res, nil)
	}
	if err != nil {
		return nil, err
	}

	reply.Intent = res.Intent
	reply.Confidence = res.Confidence
	reply.Entities = res.Entities
	a.remember(ctx, req, reply)
	return reply, nil
}

func (a *Agent) loadHistory(ctx context.Context, req Request) []llm.Message {
	if a.sessions == nil || req.SessionID == "" {
		return req.History
	}
	turns, err := a.sessions.Recent(ctx, req.SessionID, a.historyWindow*2)
	if err != nil {
		a.log.Warn("load session failed", slog.String("session_id", req.SessionID), slog.Any("error", err))
		return req.History
	}
	if len(turns) == 0 {
		return req.History
	}
	history := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := llm.RoleUser
		if t.Role == conversation.RoleAssistant {
			role = llm.RoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: t.Content})
	}
	return history
}

// window returns the most recent user utterances from history.
func (a *Agent) window(history []llm.Message) intent.Conversation {
	var utterances []string
	for _, m := range history {
		if m.Role == llm.RoleUser && strings.TrimSpace(m.Content) != "" {
			utterances = append(utterances, m.Content)
		}
	}
	if len(utterances) > a.historyWindow {
		utterances = utterances[len(utterances)-a.historyWindow:]
	}
	return intent.Conversation(utterances)
}

func (a *Agent) remember(ctx context.Context, req Request, reply *Reply) {
	if a.sessions == nil || req.SessionID == "" {
		return
	}
	now := a.now().UTC()
	err := a.sessions.Append(ctx, req.SessionID,
		conversation.Turn{Role: conversation.RoleUser, Content: req.Utterance, CreatedAt: now},
		conversation.Turn{Role: conversation.RoleAssistant, Content: reply.Message, CreatedAt: now},
	)
	if err != nil {
		a.log.Warn("save session failed", slog.String("session_id", req.SessionID), slog.Any("error", err))
	}
}
