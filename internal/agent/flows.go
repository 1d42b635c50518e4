package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	xerrors "NovaWallet/internal/errors"
	"NovaWallet/internal/events"
	"NovaWallet/internal/guardian"
	"NovaWallet/internal/intent"
	"NovaWallet/internal/llm"
	"NovaWallet/internal/preview"
	"NovaWallet/internal/slippage"
	"NovaWallet/internal/storage/mysql"
	"NovaWallet/pkg/logger"

	"github.com/google/uuid"
)

const (
	msgConnectWallet  = "Silakan hubungkan wallet kamu terlebih dahulu agar aku bisa membantu."
	msgAskAmountAddr  = "Berapa jumlah yang ingin kamu kirim, dan ke alamat mana?"
	msgAskAmount      = "Berapa jumlah yang ingin kamu kirim?"
	msgAskAddress     = "Ke alamat mana kamu ingin mengirim? Mohon berikan alamat wallet tujuan (0x...)."
	msgAskTradeAmount = "Berapa jumlah yang ingin kamu tukar? Contoh: \"1 BTC\"."
	msgAskTradePair   = "Token apa yang ingin kamu bandingkan? Contoh: \"BTC/USDT\"."
	msgBackendMissing = "Maaf, aku belum bisa menjawab itu sekarang. Coba tanyakan saldo, kirim token, atau bandingkan harga exchange."
)

var (
	sellPattern     = regexp.MustCompile(`(?i)\b(jual|sell)\b`)
	exchangePattern = regexp.MustCompile(`(?i)\b(binance|coinbase|kraken|okx|bybit|kucoin|indodax|tokocrypto)\b`)
)

func direct(msg string) *Reply {
	return &Reply{Kind: ReplyDirect, Message: msg}
}

func (a *Agent) handleSend(ctx context.Context, req Request, res intent.Resolution) (*Reply, error) {
	if !req.Wallet.Connected || req.Wallet.Address == "" {
		return direct(msgConnectWallet), nil
	}
	ent := res.Entities
	switch {
	case !ent.HasAmount() && !ent.HasAddress():
		return direct(msgAskAmountAddr), nil
	case !ent.HasAmount():
		return direct(msgAskAmount), nil
	case !ent.HasAddress():
		return direct(msgAskAddress), nil
	}

	catalog := a.previews.Catalogue()
	chainID := catalog.Default().ID
	switch {
	case ent.HasExplicitChain():
		chainID = *ent.ChainID
	case req.Wallet.ChainID != 0:
		chainID = req.Wallet.ChainID
	}
	token := ent.Token
	if token == "" {
		token = catalog.NativeSymbolOf(chainID)
	}

	txReq := guardian.TransactionRequest{
		FromAddress: req.Wallet.Address,
		ToAddress:   ent.ToAddress,
		Amount:      *ent.Amount,
		ChainID:     chainID,
		TokenSymbol: token,
	}
	started := a.now()
	p, err := a.previews.Build(ctx, txReq)
	elapsed := a.now().Sub(started).Seconds()
	if err != nil {
		a.metrics.RecordPreviewBuild("error", elapsed)
		a.metrics.RecordCollaboratorFailure("preview", string(xerrors.CodeOf(err)))
		return nil, err
	}
	outcome := "blocked"
	if p.Success {
		outcome = "ok"
	}
	a.metrics.RecordPreviewBuild(outcome, elapsed)
	a.metrics.RecordVerdict(string(p.Validations.Severity), p.Success)

	a.publish(ctx, req.SessionID, p)
	a.saveAudit(ctx, req.SessionID, p)

	return &Reply{Kind: ReplyPreview, Message: p.Message, Preview: p}, nil
}

func (a *Agent) handleBalance(ctx context.Context, req Request, history []llm.Message, res intent.Resolution) (*Reply, error) {
	if !req.Wallet.Connected || req.Wallet.Address == "" {
		return direct(msgConnectWallet), nil
	}
	if a.balances == nil {
		return a.deferToBackend(ctx, req, history, res, nil)
	}

	chainID := req.Wallet.ChainID
	if res.Entities.HasExplicitChain() {
		chainID = *res.Entities.ChainID
	}
	if chainID == 0 {
		chainID = a.previews.Catalogue().Default().ID
	}

	bal, err := a.balances.Balance(ctx, req.Wallet.Address, chainID)
	if err != nil {
		a.metrics.RecordCollaboratorFailure("balance", string(xerrors.CodeOf(err)))
		a.log.Warn("balance lookup failed",
			slog.String("address", req.Wallet.Address),
			slog.Int64("chain_id", chainID),
			slog.Any("error", err))
		return a.deferToBackend(ctx, req, history, res, []string{"Saldo wallet tidak dapat diambil saat ini."})
	}

	text := fmt.Sprintf("Saldo %s di %s: %.6f %s", bal.Address, bal.ChainName, bal.Native, bal.TokenSymbol)
	if a.backend == nil {
		return direct(text), nil
	}
	return a.deferToBackend(ctx, req, history, res, []string{text})
}

func (a *Agent) handleConsult(ctx context.Context, req Request, history []llm.Message, res intent.Resolution) (*Reply, error) {
	ent := res.Entities
	pair := ent.TradingPair
	if pair == "" && ent.Token != "" {
		pair = ent.Token + "/USDT"
	}
	switch {
	case pair == "":
		return direct(msgAskTradePair), nil
	case !ent.HasAmount():
		return direct(msgAskTradeAmount), nil
	}
	if a.oracle == nil {
		return a.deferToBackend(ctx, req, history, res, nil)
	}

	oreq := slippage.Request{
		Symbol:    pair,
		Amount:    *ent.Amount,
		Side:      tradeSide(req.Utterance),
		Exchanges: exchangesIn(req.Utterance),
	}
	quotes, err := a.oracle.Compare(ctx, oreq)
	if err != nil {
		a.metrics.RecordCollaboratorFailure("slippage", string(xerrors.CodeOf(err)))
		a.log.Warn("slippage oracle failed", slog.String("symbol", pair), slog.Any("error", err))
		return a.deferToBackend(ctx, req, history, res, []string{"Layanan perbandingan harga exchange sedang tidak tersedia."})
	}
	return &Reply{Kind: ReplyConsultation, Message: slippage.Format(quotes, oreq), Quotes: quotes}, nil
}

func tradeSide(text string) slippage.Side {
	if sellPattern.MatchString(text) {
		return slippage.SideSell
	}
	return slippage.SideBuy
}

func exchangesIn(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range exchangePattern.FindAllString(text, -1) {
		name := strings.ToLower(m)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// deferToBackend hands the turn to the conversational backend. Without a
// backend the reply carries a fixed fallback message.
func (a *Agent) deferToBackend(ctx context.Context, req Request, history []llm.Message, res intent.Resolution, observations []string) (*Reply, error) {
	if a.backend == nil {
		return &Reply{Kind: ReplyDefer, Message: msgBackendMissing}, nil
	}

	callCtx := ctx
	if a.llmTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.llmTimeout)
		defer cancel()
	}

	resp, err := a.backend.Generate(callCtx, llm.Request{
		Utterance:    req.Utterance,
		History:      history,
		Wallet:       req.Wallet,
		Intent:       string(res.Intent),
		Observations: observations,
		References:   a.references(req.Utterance, res.Intent),
	})
	if err != nil {
		a.metrics.RecordBackendCall("error")
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, xerrors.Wrap(xerrors.CodeTimeout, err, "对话后端超时")
		}
		if xerrors.CodeOf(err) != xerrors.CodeUnknown {
			return nil, err
		}
		return nil, xerrors.Wrap(xerrors.CodeBackendFailure, err, "调用对话后端失败")
	}
	a.metrics.RecordBackendCall("ok")
	return &Reply{Kind: ReplyDefer, Message: resp.Reply, Backend: resp.Model}, nil
}

func (a *Agent) references(utterance string, kind intent.Kind) []string {
	if a.knowledge == nil {
		return nil
	}
	snippets := a.knowledge.Query(utterance, kind)
	if len(snippets) == 0 {
		return nil
	}
	out := make([]string, 0, len(snippets))
	for _, s := range snippets {
		out = append(out, s.String())
	}
	return out
}

func (a *Agent) publish(ctx context.Context, sessionID string, p *preview.TransactionPreview) {
	if a.publisher == nil {
		return
	}
	evt := events.Event{
		ID:          uuid.NewString(),
		Type:        events.TypePreviewCreated,
		SessionID:   sessionID,
		PreviewID:   p.ID,
		Success:     p.Success,
		Severity:    string(p.Validations.Severity),
		FromAddress: p.Preview.FromAddress,
		ToAddress:   p.Preview.ToAddress,
		Amount:      p.Preview.Amount,
		TokenSymbol: p.Preview.TokenSymbol,
		ChainID:     p.Preview.ChainID,
		CreatedAt:   p.CreatedAt,
	}
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := a.publisher.Publish(pubCtx, evt); err != nil {
		a.metrics.RecordEventPublished("error")
		a.log.Warn("publish preview event failed", slog.String("preview_id", p.ID), slog.Any("error", err))
		return
	}
	a.metrics.RecordEventPublished("ok")
}

func (a *Agent) saveAudit(ctx context.Context, sessionID string, p *preview.TransactionPreview) {
	if a.audit == nil {
		return
	}
	record := mysql.PreviewRecord{
		PreviewID:     p.ID,
		SessionID:     sessionID,
		FromAddress:   p.Preview.FromAddress,
		ToAddress:     p.Preview.ToAddress,
		Amount:        p.Preview.Amount,
		TokenSymbol:   p.Preview.TokenSymbol,
		ChainID:       p.Preview.ChainID,
		Success:       p.Success,
		Severity:      string(p.Validations.Severity),
		Issues:        p.Validations.Issues,
		Warnings:      p.Validations.Warnings,
		DoubleConfirm: p.Validations.RequiresDoubleConfirm,
		CreatedAt:     p.CreatedAt.Unix(),
	}
	if err := a.audit.Save(ctx, record); err != nil {
		logger.Audit().Error("preview audit save failed",
			slog.String("preview_id", p.ID),
			slog.Any("error", err))
	}
}
