package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"NovaWallet/internal/agent"
	xerrors "NovaWallet/internal/errors"
	"NovaWallet/internal/guardian"
	"NovaWallet/internal/intent"
	"NovaWallet/internal/observability/alerting"
	"NovaWallet/internal/preview"
	"NovaWallet/internal/slippage"
	"NovaWallet/internal/storage/mysql"
	"NovaWallet/internal/wallet"
	"NovaWallet/internal/web3"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// parseRequest 接受完整对话或单条消息。
type parseRequest struct {
	Messages []string `json:"messages"`
	Message  string   `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req agent.Request
	if !decode(w, r, &req) {
		return
	}
	reply, err := s.svc.Agent.Handle(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req guardian.TransactionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Amount <= 0 || req.ChainID == 0 {
		s.writeError(w, r, xerrors.New(xerrors.CodeInvalidArgument, "amount 与 chainId 必须为正数"))
		return
	}
	p, err := s.svc.Previews.Build(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var params guardian.Params
	if !decode(w, r, &params) {
		return
	}
	if _, err := s.svc.Guardian.Rules().Catalogue().Require(params.ChainID); err != nil {
		s.writeError(w, r, err)
		return
	}
	res := s.svc.Guardian.Validate(params)
	s.metrics.RecordVerdict(string(res.Severity), res.Valid)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !decode(w, r, &req) {
		return
	}
	conv := intent.Conversation(req.Messages)
	if msg := strings.TrimSpace(req.Message); msg != "" {
		conv = append(conv, msg)
	}
	if len(conv) == 0 {
		s.writeError(w, r, xerrors.New(xerrors.CodeInvalidArgument, "messages 不能为空"))
		return
	}
	res := s.svc.Resolver.Resolve(conv)
	s.metrics.RecordIntent(string(res.Intent))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleChains(w http.ResponseWriter, _ *http.Request) {
	cat := s.svc.Guardian.Rules().Catalogue()
	writeJSON(w, http.StatusOK, map[string]any{
		"defaultChain": cat.Default().ID,
		"chains":       cat.Chains,
	})
}

func (s *Server) handleListPreviews(w http.ResponseWriter, r *http.Request) {
	if s.svc.Audit == nil {
		s.writeError(w, r, xerrors.New(xerrors.CodeInitializationFailure, "审计仓库未启用", xerrors.WithRetryable(false)))
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var (
		records []mysql.PreviewRecord
		err     error
	)
	if addr := strings.TrimSpace(r.URL.Query().Get("address")); addr != "" {
		records, err = s.svc.Audit.ListByAddress(r.Context(), addr, limit)
	} else {
		records, err = s.svc.Audit.ListLatest(r.Context(), limit)
	}
	if err != nil {
		s.writeError(w, r, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询审计记录失败"))
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]errorBody{
			"error": {Code: string(xerrors.CodeInvalidArgument), Message: "请求体解析失败"},
		})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{
		Code:      string(xerrors.CodeOf(err)),
		Message:   err.Error(),
		Retryable: xerrors.RetryableError(err),
	}
	if e, ok := xerrors.From(err); ok && e.Message() != "" {
		body.Message = e.Message()
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("code", body.Code),
			slog.Any("error", err))
		s.alert(r, err)
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}

// alert 异步投递告警，避免阻塞响应。
func (s *Server) alert(r *http.Request, err error) {
	if s.alerts == nil {
		return
	}
	evt, ok := alerting.FromError(err, "api", map[string]string{
		"path":       r.URL.Path,
		"request_id": chiMiddleware.GetReqID(r.Context()),
	})
	if !ok {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.alerts.Notify(ctx, evt); err != nil {
			s.log.Warn("发送告警失败", slog.Any("error", err))
		}
	}()
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	switch xerrors.CodeOf(err) {
	case xerrors.CodeInvalidArgument:
		return http.StatusBadRequest
	case xerrors.CodeNotFound:
		return http.StatusNotFound
	case web3.CodeUnsupportedChain, guardian.CodeValidationBlocking:
		return http.StatusUnprocessableEntity
	case preview.CodeCollaboratorFailure, wallet.CodeNetwork, slippage.CodeOracleFailure, xerrors.CodeBackendFailure:
		return http.StatusBadGateway
	case xerrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case xerrors.CodeInitializationFailure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
