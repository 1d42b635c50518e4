package intent

// Kind is the inferred goal of one turn or of a whole conversation thread.
type Kind string

const (
	KindGetBalance      Kind = "GET_BALANCE"
	KindSend            Kind = "SEND"
	KindSwap            Kind = "SWAP"
	KindConsultSlippage Kind = "CONSULT_SLIPPAGE"
	KindUnknown         Kind = "UNKNOWN"
)

// Entities holds the parameters extracted from text. Every field is
// optional; absent values are nil or empty, never errors.
type Entities struct {
	Amount      *float64 `json:"amount,omitempty"`
	Token       string   `json:"token,omitempty"`
	ToAddress   string   `json:"toAddress,omitempty"`
	ChainID     *int64   `json:"chainId,omitempty"`
	ChainName   string   `json:"chainName,omitempty"`
	TradingPair string   `json:"tradingPair,omitempty"`
	// ChainDefaulted 为 true 表示链来自默认配置，而非用户原文。
	ChainDefaulted bool `json:"chainDefaulted,omitempty"`
}

// HasAmount reports whether an amount was found.
func (e Entities) HasAmount() bool { return e.Amount != nil }

// HasAddress reports whether a destination address was found.
func (e Entities) HasAddress() bool { return e.ToAddress != "" }

// HasExplicitChain reports whether the chain was named in the text.
func (e Entities) HasExplicitChain() bool { return e.ChainID != nil && !e.ChainDefaulted }

// overlay returns a copy of e where every field present in next replaces
// the current value. A defaulted chain never replaces an explicit one.
func (e Entities) overlay(next Entities) Entities {
	out := e
	if next.Amount != nil {
		v := *next.Amount
		out.Amount = &v
	}
	if next.Token != "" {
		out.Token = next.Token
	}
	if next.ToAddress != "" {
		out.ToAddress = next.ToAddress
	}
	if next.ChainID != nil && (!next.ChainDefaulted || !out.HasExplicitChain()) {
		id := *next.ChainID
		out.ChainID = &id
		out.ChainName = next.ChainName
		out.ChainDefaulted = next.ChainDefaulted
	}
	if next.TradingPair != "" {
		out.TradingPair = next.TradingPair
	}
	return out
}

// Parsed is the classification of a single utterance.
type Parsed struct {
	Intent     Kind     `json:"intent"`
	Confidence float64  `json:"confidence"`
	Entities   Entities `json:"entities"`
}

// Conversation is the ordered list of user utterances, oldest first.
type Conversation []string

// Resolution is the outcome of resolving a whole conversation.
type Resolution struct {
	Intent     Kind     `json:"intent"`
	Confidence float64  `json:"confidence"`
	Entities   Entities `json:"entities"`
	Turns      []Parsed `json:"turns,omitempty"`
}

// Ready reports whether the resolution carries enough to prepare a transfer.
func (r Resolution) Ready() bool {
	return r.Intent == KindSend && r.Entities.HasAmount() && r.Entities.HasAddress()
}
