// Package nova is a Go client for the Nova wallet assistant REST API.
package nova

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. Chat requests may wait on an LLM backend, so it is
// longer than a plain REST call would need.
const DefaultHTTPTimeout = 60 * time.Second

const maxResponseBytes = 1 << 20

// Client wraps the HTTP interactions with the Nova REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("nova api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("nova api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the Nova API. When httpClient is nil, a
// default client with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url: %q", rawURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// Chat sends one user message and returns the assistant's reply.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	var reply ChatReply
	if err := c.post(ctx, "/api/v1/chat", req, &reply); err != nil {
		return ChatReply{}, err
	}
	return reply, nil
}

// Preview builds a transaction preview without going through the chat flow.
func (c *Client) Preview(ctx context.Context, req TransactionRequest) (Preview, error) {
	var p Preview
	if err := c.post(ctx, "/api/v1/transactions/preview", req, &p); err != nil {
		return Preview{}, err
	}
	return p, nil
}

// Validate runs the guardian rules over a transfer.
func (c *Client) Validate(ctx context.Context, req ValidateRequest) (Verdict, error) {
	var v Verdict
	if err := c.post(ctx, "/api/v1/guardian/validate", req, &v); err != nil {
		return Verdict{}, err
	}
	return v, nil
}

// Parse resolves the intent of a conversation; each message is one user turn.
func (c *Client) Parse(ctx context.Context, messages ...string) (Resolution, error) {
	var res Resolution
	payload := struct {
		Messages []string `json:"messages"`
	}{Messages: messages}
	if err := c.post(ctx, "/api/v1/intents/parse", payload, &res); err != nil {
		return Resolution{}, err
	}
	return res, nil
}

// Chains lists the chains the server supports.
func (c *Client) Chains(ctx context.Context) (ChainList, error) {
	var list ChainList
	if err := c.get(ctx, "/api/v1/chains", nil, &list); err != nil {
		return ChainList{}, err
	}
	return list, nil
}

// RecentPreviews returns audited previews, newest first. An empty address
// lists across all senders.
func (c *Client) RecentPreviews(ctx context.Context, address string, limit int) ([]PreviewRecord, error) {
	q := url.Values{}
	if address != "" {
		q.Set("address", address)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var records []PreviewRecord
	if err := c.get(ctx, "/api/v1/previews", q, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// PreviewRecord is an audited preview.
type PreviewRecord struct {
	PreviewID     string   `json:"previewId"`
	SessionID     string   `json:"sessionId,omitempty"`
	FromAddress   string   `json:"fromAddress"`
	ToAddress     string   `json:"toAddress"`
	Amount        float64  `json:"amount"`
	TokenSymbol   string   `json:"tokenSymbol"`
	ChainID       int64    `json:"chainId"`
	Success       bool     `json:"success"`
	Severity      string   `json:"severity"`
	Issues        []string `json:"issues"`
	Warnings      []string `json:"warnings"`
	DoubleConfirm bool     `json:"doubleConfirm"`
	CreatedAt     int64    `json:"createdAt"`
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &struct {
				Error *APIError `json:"error"`
			}{Error: &apiErr}); err != nil {
				apiErr.Message = string(bytes.TrimSpace(data))
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return &apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
