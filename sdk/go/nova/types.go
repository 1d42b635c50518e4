package nova

import (
	"encoding/json"
	"time"
)

// WalletContext describes the wallet the user has connected in the client.
type WalletContext struct {
	Connected bool   `json:"isConnected"`
	Address   string `json:"address,omitempty"`
	ChainID   int64  `json:"chainId,omitempty"`
	ChainName string `json:"chainName,omitempty"`
}

// Message is a single prior conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the payload accepted by the chat endpoint.
type ChatRequest struct {
	SessionID string        `json:"sessionId,omitempty"`
	Message   string        `json:"message"`
	History   []Message     `json:"history,omitempty"`
	Wallet    WalletContext `json:"walletContext"`
}

// Entities holds the values extracted from the conversation.
type Entities struct {
	Amount         *float64 `json:"amount,omitempty"`
	Token          string   `json:"token,omitempty"`
	ToAddress      string   `json:"toAddress,omitempty"`
	ChainID        *int64   `json:"chainId,omitempty"`
	ChainName      string   `json:"chainName,omitempty"`
	TradingPair    string   `json:"tradingPair,omitempty"`
	ChainDefaulted bool     `json:"chainDefaulted,omitempty"`
}

// ChatReply is the assistant's answer to a chat request.
type ChatReply struct {
	Kind       string          `json:"kind"`
	Intent     string          `json:"intent"`
	Confidence float64         `json:"confidence"`
	Entities   Entities        `json:"entities"`
	Message    string          `json:"message"`
	Preview    *Preview        `json:"preview,omitempty"`
	Quotes     json.RawMessage `json:"quotes,omitempty"`
	Backend    string          `json:"backend,omitempty"`
}

// TransactionRequest describes a transfer to preview.
type TransactionRequest struct {
	FromAddress string  `json:"fromAddress"`
	ToAddress   string  `json:"toAddress"`
	Amount      float64 `json:"amount"`
	ChainID     int64   `json:"chainId"`
	TokenSymbol string  `json:"tokenSymbol,omitempty"`
}

// PreviewDetails is the human facing part of a preview.
type PreviewDetails struct {
	FromAddress     string  `json:"fromAddress"`
	ToAddress       string  `json:"toAddress"`
	Amount          float64 `json:"amount"`
	AmountFormatted string  `json:"amountFormatted"`
	TokenSymbol     string  `json:"tokenSymbol"`
	ChainID         int64   `json:"chainId"`
	ChainName       string  `json:"chainName"`
	CurrentBalance  float64 `json:"currentBalance"`
	GasEstimate     string  `json:"gasEstimate"`
	TotalEstimate   string  `json:"totalEstimate"`
}

// PreviewValidations carries the guardian verdict attached to a preview.
type PreviewValidations struct {
	HasBalance            bool     `json:"hasBalance"`
	Issues                []string `json:"issues"`
	Warnings              []string `json:"warnings"`
	Recommendations       []string `json:"recommendations"`
	RequiresDoubleConfirm bool     `json:"requiresDoubleConfirm"`
	Severity              string   `json:"severity"`
}

// Preview is a transaction preview produced by the server.
type Preview struct {
	ID          string             `json:"id"`
	Success     bool               `json:"success"`
	Preview     PreviewDetails     `json:"preview"`
	Validations PreviewValidations `json:"validations"`
	Message     string             `json:"message"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// ValidateRequest asks the guardian to check a transfer. Balance and
// GasEstimate are optional; balance checks are skipped when nil.
type ValidateRequest struct {
	FromAddress string   `json:"fromAddress"`
	ToAddress   string   `json:"toAddress"`
	Amount      float64  `json:"amount"`
	ChainID     int64    `json:"chainId"`
	TokenSymbol string   `json:"tokenSymbol,omitempty"`
	Balance     *float64 `json:"currentBalance,omitempty"`
	GasEstimate *float64 `json:"gasEstimate,omitempty"`
}

// Verdict is the guardian's answer.
type Verdict struct {
	Valid                 bool     `json:"valid"`
	Issues                []string `json:"issues"`
	Warnings              []string `json:"warnings"`
	Recommendations       []string `json:"recommendations"`
	RequiresDoubleConfirm bool     `json:"requiresDoubleConfirm"`
	Severity              string   `json:"severity"`
}

// Resolution is the intent resolved from a conversation.
type Resolution struct {
	Intent     string   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Entities   Entities `json:"entities"`
}

// Chain is one entry of the server's chain catalogue.
type Chain struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	NativeSymbol string `json:"native_symbol"`
	Testnet      bool   `json:"testnet"`
	Layer2       bool   `json:"layer2"`
}

// ChainList is returned by the chains endpoint.
type ChainList struct {
	DefaultChain int64   `json:"defaultChain"`
	Chains       []Chain `json:"chains"`
}
