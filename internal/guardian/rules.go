package guardian

import (
	"strings"

	"NovaWallet/internal/web3"
)

// Rules holds the static chain metadata and thresholds the validators use.
// It is immutable after construction and safe to share.
type Rules struct {
	catalog       web3.Catalogue
	nativeSymbols map[string]struct{}

	gasBuffer         float64
	lowRemainder      float64
	criticalRemainder float64
	dustThreshold     float64
	largeNative       float64
	roundThreshold    float64
}

// RulesOption customises thresholds.
type RulesOption func(*Rules)

// WithGasBuffer sets the fraction of the gas estimate added as buffer.
func WithGasBuffer(fraction float64) RulesOption {
	return func(r *Rules) {
		if fraction >= 0 {
			r.gasBuffer = fraction
		}
	}
}

// WithLowRemainder sets the post-transfer balance under which a warning is shown.
func WithLowRemainder(threshold float64) RulesOption {
	return func(r *Rules) {
		if threshold > 0 {
			r.lowRemainder = threshold
		}
	}
}

// WithLargeNativeAmount sets the native amount above which a transfer needs double confirmation.
func WithLargeNativeAmount(threshold float64) RulesOption {
	return func(r *Rules) {
		if threshold > 0 {
			r.largeNative = threshold
		}
	}
}

// NewRules builds the rule set from a chain catalogue.
func NewRules(catalog web3.Catalogue, opts ...RulesOption) Rules {
	r := Rules{
		catalog:           catalog,
		nativeSymbols:     make(map[string]struct{}),
		gasBuffer:         0.15,
		lowRemainder:      0.01,
		criticalRemainder: 0.001,
		dustThreshold:     0.000001,
		largeNative:       10,
		roundThreshold:    100,
	}
	for _, def := range catalog.Chains {
		r.nativeSymbols[strings.ToUpper(def.NativeSymbol)] = struct{}{}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&r)
		}
	}
	return r
}

func (r Rules) isNative(symbol string) bool {
	_, ok := r.nativeSymbols[strings.ToUpper(symbol)]
	return ok
}

// TotalNeeded returns amount plus gas plus the gas buffer.
func (r Rules) TotalNeeded(amount, gas float64) float64 {
	return amount + gas + gas*r.gasBuffer
}

// Catalogue exposes the chain catalogue the rules were built from.
func (r Rules) Catalogue() web3.Catalogue {
	return r.catalog
}
