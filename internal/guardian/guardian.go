package guardian

import (
	"log/slog"
	"strings"

	"NovaWallet/pkg/logger"
)

// Guardian runs every validator over a prepared transfer and grades the
// outcome. It holds no mutable state.
type Guardian struct {
	rules Rules
	audit *slog.Logger
}

// Option 定义可选的 Guardian 配置。
type Option func(*Guardian)

// WithAuditLogger 指定记录审计结果的 logger。
func WithAuditLogger(l *slog.Logger) Option {
	return func(g *Guardian) {
		if l != nil {
			g.audit = l
		}
	}
}

// New creates a Guardian over the given rules.
func New(rules Rules, opts ...Option) *Guardian {
	g := &Guardian{rules: rules}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Rules returns the rule set used by the guardian.
func (g *Guardian) Rules() Rules {
	return g.rules
}

// Validate runs, in order: sender address, recipient address, self-transfer,
// network compatibility, balance (when balance and gas are known) and
// amount (when balance is known). Severity only rises along the way.
func (g *Guardian) Validate(p Params) Result {
	token := strings.ToUpper(strings.TrimSpace(p.TokenSymbol))
	if token == "" {
		token = g.rules.catalog.NativeSymbolOf(p.ChainID)
	}

	res := Result{ValidationResult: newValidation(), Severity: SeverityNone}

	res.absorb(g.rules.ValidateAddress(p.FromAddress, p.ChainID))
	res.absorb(g.rules.ValidateAddress(p.ToAddress, p.ChainID))
	if !res.Valid {
		res.Severity = SeverityCritical
	}

	if p.FromAddress != "" && strings.EqualFold(p.FromAddress, p.ToAddress) {
		res.warn("Anda mengirim ke alamat Anda sendiri. Ini akan membuang gas fee tanpa efek.")
		res.Severity = res.Severity.atLeast(SeverityLow)
	}

	res.absorb(g.rules.CheckNetworkCompatibility(p.ChainID, p.ToAddress, token))

	// 非有限金额无论余额是否已知都直接拦截，后续的余额与金额检查不再有意义。
	finite := isFinite(p.Amount)
	if !finite {
		res.block(msgAmountNotFinite)
	}

	if finite && p.Balance != nil && p.GasEstimate != nil {
		balance := g.rules.ValidateBalance(*p.Balance, p.Amount, *p.GasEstimate, token)
		res.absorb(balance)
		if !balance.Valid {
			res.Severity = SeverityCritical
		}
	}

	if finite && p.Balance != nil {
		amount := g.rules.ValidateAmount(p.Amount, token, *p.Balance)
		res.absorb(amount.ValidationResult)
		res.RequiresDoubleConfirm = res.RequiresDoubleConfirm || amount.RequiresDoubleConfirm
		if !amount.Valid {
			res.Severity = SeverityCritical
		} else if len(amount.Warnings) > 0 {
			res.Severity = res.Severity.atLeast(SeverityMedium)
		}
	}

	switch {
	case len(res.Issues) > 0:
		res.Severity = SeverityCritical
	case res.RequiresDoubleConfirm:
		res.Severity = res.Severity.atLeast(SeverityHigh)
	case len(res.Warnings) > 0:
		res.Severity = res.Severity.atLeast(SeverityMedium)
	}
	res.Valid = len(res.Issues) == 0

	audit := g.audit
	if audit == nil {
		audit = logger.Audit()
	}
	audit.Info("guardian verdict",
		slog.String("from", p.FromAddress),
		slog.String("to", p.ToAddress),
		slog.Float64("amount", p.Amount),
		slog.Int64("chain_id", p.ChainID),
		slog.String("token", token),
		slog.Bool("valid", res.Valid),
		slog.String("severity", string(res.Severity)),
		slog.Int("issues", len(res.Issues)),
		slog.Int("warnings", len(res.Warnings)),
		slog.Bool("double_confirm", res.RequiresDoubleConfirm),
	)
	return res
}
