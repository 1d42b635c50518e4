package preview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	xerrors "NovaWallet/internal/errors"
	"NovaWallet/internal/guardian"
	"NovaWallet/internal/wallet"
	"NovaWallet/internal/web3"
	"NovaWallet/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Builder assembles transfer previews. It is safe for concurrent use.
type Builder struct {
	guardian *guardian.Guardian
	balances wallet.BalanceLookup
	gas      wallet.GasEstimator
	timeout  time.Duration
	now      func() time.Time
	newID    func() string
	log      *slog.Logger
}

// Option 定义可选的 Builder 配置。
type Option func(*Builder)

// WithLookupTimeout 限制余额与 gas 查询的总耗时。
func WithLookupTimeout(d time.Duration) Option {
	return func(b *Builder) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithClock 指定生成时间戳使用的时钟，主要用于测试。
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithIDGenerator 覆盖预览 ID 的生成方式。
func WithIDGenerator(fn func() string) Option {
	return func(b *Builder) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// WithLogger 指定运行日志。
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// NewBuilder creates a preview builder.
func NewBuilder(g *guardian.Guardian, balances wallet.BalanceLookup, gas wallet.GasEstimator, opts ...Option) *Builder {
	b := &Builder{
		guardian: g,
		balances: balances,
		gas:      gas,
		timeout:  10 * time.Second,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if b.log == nil {
		b.log = logger.Named("preview")
	}
	return b
}

// Catalogue returns the chain catalogue the guardian validates against.
func (b *Builder) Catalogue() web3.Catalogue {
	return b.guardian.Rules().Catalogue()
}

// Build fetches balance and gas, runs the guardian and returns the preview.
// A failed lookup aborts the build; no partial preview is returned.
func (b *Builder) Build(ctx context.Context, req guardian.TransactionRequest) (*TransactionPreview, error) {
	if b == nil || b.guardian == nil || b.balances == nil || b.gas == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "preview builder 未初始化")
	}
	catalog := b.guardian.Rules().Catalogue()
	chain, err := catalog.Require(req.ChainID)
	if err != nil {
		return nil, err
	}
	req.TokenSymbol = strings.ToUpper(strings.TrimSpace(req.TokenSymbol))
	if req.TokenSymbol == "" {
		req.TokenSymbol = chain.NativeSymbol
	}

	lookupCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	// 发送方地址无效时跳过余额查询，由 guardian 报告地址问题。
	fetchBalance := b.guardian.Rules().ValidateAddress(req.FromAddress, req.ChainID).Valid

	var (
		balance *float64
		gasCost float64
	)
	group, gctx := errgroup.WithContext(lookupCtx)
	if fetchBalance {
		group.Go(func() error {
			bal, err := b.balances.Balance(gctx, req.FromAddress, req.ChainID)
			if err != nil {
				return collaboratorError("余额查询失败", err)
			}
			native := bal.Native
			balance = &native
			return nil
		})
	}
	group.Go(func() error {
		est, err := b.gas.Estimate(gctx, req.ChainID)
		if err != nil {
			return collaboratorError("gas 估算失败", err)
		}
		gasCost = est
		return nil
	})
	if err := group.Wait(); err != nil {
		b.log.Warn("preview lookup failed",
			slog.Int64("chain_id", req.ChainID),
			slog.String("from", req.FromAddress),
			slog.Any("error", err))
		return nil, err
	}

	verdict := b.guardian.Validate(req.Params(balance, &gasCost))
	p := b.assemble(req, chain, balance, gasCost, verdict)

	logger.Audit().Info("preview created",
		slog.String("preview_id", p.ID),
		slog.Bool("success", p.Success),
		slog.String("severity", string(verdict.Severity)),
		slog.Int64("chain_id", req.ChainID))
	return p, nil
}

func (b *Builder) assemble(req guardian.TransactionRequest, chain web3.ChainDefinition, balance *float64, gasCost float64, verdict guardian.Result) *TransactionPreview {
	total := req.Amount + gasCost
	details := Details{
		FromAddress:     req.FromAddress,
		ToAddress:       req.ToAddress,
		Amount:          req.Amount,
		AmountFormatted: fmt.Sprintf("%s %s", formatNumber(req.Amount), req.TokenSymbol),
		TokenSymbol:     req.TokenSymbol,
		ChainID:         chain.ID,
		ChainName:       chain.Name,
		GasEstimate:     formatNumber(gasCost),
		TotalEstimate:   formatNumber(total),
	}
	hasBalance := false
	if balance != nil {
		details.CurrentBalance = *balance
		hasBalance = *balance >= b.guardian.Rules().TotalNeeded(req.Amount, gasCost)
	}
	validations := Validations{
		HasBalance:            hasBalance,
		Issues:                verdict.Issues,
		Warnings:              verdict.Warnings,
		Recommendations:       verdict.Recommendations,
		RequiresDoubleConfirm: verdict.RequiresDoubleConfirm,
		Severity:              verdict.Severity,
	}
	return &TransactionPreview{
		ID:          b.newID(),
		Success:     verdict.Valid,
		Preview:     details,
		Validations: validations,
		Message:     Summarize(details, validations),
		CreatedAt:   b.now().UTC(),
	}
}

// collaboratorError keeps unsupported-chain and argument errors as they are
// and wraps everything else as a retryable collaborator failure.
func collaboratorError(msg string, err error) error {
	switch xerrors.CodeOf(err) {
	case web3.CodeUnsupportedChain, xerrors.CodeInvalidArgument:
		return err
	}
	return xerrors.Wrap(CodeCollaboratorFailure, err, msg)
}
