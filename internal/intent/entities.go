package intent

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"NovaWallet/internal/web3"
)

// TokenKeywords maps a token symbol to the words that refer to it.
type TokenKeywords struct {
	Symbol   string
	Keywords []string
}

// DefaultTokens is the ordered token dictionary; the first match wins.
var DefaultTokens = []TokenKeywords{
	{Symbol: "ETH", Keywords: []string{"eth", "ethereum"}},
	{Symbol: "MATIC", Keywords: []string{"matic", "polygon"}},
	{Symbol: "USDT", Keywords: []string{"usdt", "tether"}},
	{Symbol: "USDC", Keywords: []string{"usdc", "circle"}},
	{Symbol: "LSK", Keywords: []string{"lsk"}},
}

// MaxAmount 超过该值的数字更像链 ID 等上下文信息，不视为金额。
const MaxAmount = 1_000_000

var (
	addressPattern     = regexp.MustCompile(`0x[a-fA-F0-9]{40}`)
	amountPattern      = regexp.MustCompile(`(?i)\d+(?:\.\d+)?(?:e[+-]?\d+)?`)
	tokenAmountPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?(?:e[+-]?\d+)?)\s*(?:eth|lsk|usdt|usdc|matic|bnb)`)
	tradingPairPattern = regexp.MustCompile(`[A-Z]{2,10}/[A-Z]{2,10}`)
)

// Extractor pulls entities out of a single utterance using regular
// expressions and ordered keyword dictionaries.
type Extractor struct {
	catalog web3.Catalogue
	tokens  []TokenKeywords
}

// ExtractorOption customises an Extractor.
type ExtractorOption func(*Extractor)

// WithTokens replaces the token dictionary.
func WithTokens(tokens []TokenKeywords) ExtractorOption {
	return func(e *Extractor) {
		if len(tokens) > 0 {
			e.tokens = tokens
		}
	}
}

// NewExtractor creates an extractor over the given chain catalogue.
func NewExtractor(catalog web3.Catalogue, opts ...ExtractorOption) *Extractor {
	ex := &Extractor{catalog: catalog, tokens: DefaultTokens}
	for _, opt := range opts {
		if opt != nil {
			opt(ex)
		}
	}
	return ex
}

// Extract never fails; fields it cannot find are left empty.
func (x *Extractor) Extract(text string) Entities {
	var out Entities

	out.ToAddress = addressPattern.FindString(text)

	withoutAddress := addressPattern.ReplaceAllString(text, " ")
	if amount, ok := extractAmount(withoutAddress); ok {
		out.Amount = &amount
	}

	out.Token = x.detectToken(text)

	if def, ok := x.catalog.Detect(text); ok {
		id := def.ID
		out.ChainID = &id
		out.ChainName = def.Name
	} else if def := x.catalog.Default(); def.ID != 0 {
		id := def.ID
		out.ChainID = &id
		out.ChainName = def.Name
		out.ChainDefaulted = true
	}

	out.TradingPair = tradingPairPattern.FindString(text)
	return out
}

func extractAmount(text string) (float64, bool) {
	var first float64
	found := false
	for _, raw := range amountPattern.FindAllString(text, -1) {
		if v, ok := plausibleAmount(raw); ok {
			first, found = v, true
			break
		}
	}
	if !found {
		return 0, false
	}
	for _, m := range tokenAmountPattern.FindAllStringSubmatch(text, -1) {
		if v, ok := plausibleAmount(m[1]); ok {
			return v, true
		}
	}
	return first, true
}

func plausibleAmount(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v <= 0 || v > MaxAmount {
		return 0, false
	}
	return v, true
}

func (x *Extractor) detectToken(text string) string {
	lower := strings.ToLower(text)
	for _, tk := range x.tokens {
		for _, kw := range tk.Keywords {
			if strings.Contains(lower, kw) {
				return tk.Symbol
			}
		}
	}
	return ""
}
