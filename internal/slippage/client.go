package slippage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	xerrors "NovaWallet/internal/errors"
	"NovaWallet/pkg/logger"
)

// CodeOracleFailure 表示滑点预测服务不可用或返回了无效数据。
const CodeOracleFailure xerrors.Code = "ORACLE_FAILURE"

func init() {
	xerrors.Register(CodeOracleFailure, xerrors.Attributes{
		Message:   "slippage oracle unavailable",
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
	})
}

const defaultTimeout = 15 * time.Second

// Side is the trade direction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Request asks the oracle to price a trade across venues.
type Request struct {
	Symbol    string   `json:"symbol"`
	Amount    float64  `json:"amount"`
	Side      Side     `json:"side"`
	Exchanges []string `json:"exchanges,omitempty"`
}

// Fees splits a quote's cost.
type Fees struct {
	TradingFee   float64 `json:"trading_fee"`
	SlippageCost float64 `json:"slippage_cost"`
}

// Quote is one venue's predicted execution.
type Quote struct {
	Exchange             string  `json:"exchange"`
	QuotePrice           float64 `json:"quote_price"`
	PredictedSlippagePct float64 `json:"predicted_slippage_pct"`
	TotalCost            float64 `json:"total_cost"`
	Fees                 Fees    `json:"fees"`
}

// Response is the oracle's answer.
type Response struct {
	BestVenue string  `json:"best_venue"`
	Quotes    []Quote `json:"quotes"`
}

// Oracle prices a trade across exchanges.
type Oracle interface {
	Compare(ctx context.Context, req Request) (*Response, error)
}

// Config 描述滑点预测服务的连接参数。
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the slippage prediction HTTP service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient 根据配置创建滑点服务客户端。
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "未配置滑点服务地址")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.Named("slippage"),
	}, nil
}

// Compare posts to /compare when specific exchanges are requested and to
// /predict otherwise.
func (c *Client) Compare(ctx context.Context, req Request) (*Response, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" || req.Amount <= 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "滑点查询需要交易对和正数数量")
	}
	if req.Side != SideSell {
		req.Side = SideBuy
	}

	path := "/predict"
	if len(req.Exchanges) > 0 {
		path = "/compare"
	} else {
		req.Exchanges = nil
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化滑点请求失败: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("构建滑点请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.log.Info("fetching slippage quotes",
		slog.String("symbol", req.Symbol),
		slog.Float64("amount", req.Amount),
		slog.String("side", string(req.Side)),
		slog.String("endpoint", path))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, xerrors.Wrap(CodeOracleFailure, err, "请求滑点服务失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, xerrors.New(CodeOracleFailure,
			fmt.Sprintf("滑点服务返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			xerrors.WithRetryable(resp.StatusCode >= http.StatusInternalServerError))
	}

	var decoded Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, xerrors.Wrap(CodeOracleFailure, err, "解析滑点响应失败")
	}
	if len(decoded.Quotes) == 0 {
		return nil, xerrors.New(CodeOracleFailure, "滑点响应中没有报价", xerrors.WithRetryable(false))
	}

	c.log.Info("slippage quotes received",
		slog.String("best_venue", decoded.BestVenue),
		slog.Int("quotes", len(decoded.Quotes)))
	return &decoded, nil
}
