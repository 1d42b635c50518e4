package guardian

import (
	"strings"

	xerrors "NovaWallet/internal/errors"
)

// CodeValidationBlocking marks a transfer the guardian refused.
const CodeValidationBlocking xerrors.Code = "VALIDATION_BLOCKING"

func init() {
	xerrors.Register(CodeValidationBlocking, xerrors.Attributes{
		Message:  "transaction blocked by guardian",
		Severity: xerrors.SeverityInfo,
	})
}

// Severity grades a verdict. It only ever rises during orchestration.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// atLeast returns the higher of s and floor.
func (s Severity) atLeast(floor Severity) Severity {
	if floor.rank() > s.rank() {
		return floor
	}
	return s
}

// ValidationResult is what a single validator reports. Issues block the
// transfer; warnings and recommendations never do.
type ValidationResult struct {
	Valid           bool     `json:"valid"`
	Issues          []string `json:"issues"`
	Warnings        []string `json:"warnings"`
	Recommendations []string `json:"recommendations"`
}

func newValidation() ValidationResult {
	return ValidationResult{Valid: true, Issues: []string{}, Warnings: []string{}, Recommendations: []string{}}
}

func (v *ValidationResult) block(msg string) {
	v.Valid = false
	v.Issues = append(v.Issues, msg)
}

func (v *ValidationResult) warn(msg string) {
	v.Warnings = append(v.Warnings, msg)
}

func (v *ValidationResult) recommend(msg string) {
	v.Recommendations = append(v.Recommendations, msg)
}

func (v *ValidationResult) absorb(other ValidationResult) {
	if !other.Valid {
		v.Valid = false
	}
	v.Issues = append(v.Issues, other.Issues...)
	v.Warnings = append(v.Warnings, other.Warnings...)
	v.Recommendations = append(v.Recommendations, other.Recommendations...)
}

// AmountResult adds the double-confirm flag the amount check may raise.
type AmountResult struct {
	ValidationResult
	RequiresDoubleConfirm bool `json:"requiresDoubleConfirm"`
}

// TransactionRequest is a prepared native transfer awaiting validation.
type TransactionRequest struct {
	FromAddress string  `json:"fromAddress"`
	ToAddress   string  `json:"toAddress"`
	Amount      float64 `json:"amount"`
	ChainID     int64   `json:"chainId"`
	TokenSymbol string  `json:"tokenSymbol,omitempty"`
}

// Params attaches the known balance and gas estimate to the request.
func (t TransactionRequest) Params(balance, gas *float64) Params {
	return Params{
		FromAddress: t.FromAddress,
		ToAddress:   t.ToAddress,
		Amount:      t.Amount,
		ChainID:     t.ChainID,
		TokenSymbol: t.TokenSymbol,
		Balance:     balance,
		GasEstimate: gas,
	}
}

// Params is the input to a full guardian run. Balance and GasEstimate are
// nil when unknown; the checks that depend on them are then skipped.
type Params struct {
	FromAddress string   `json:"fromAddress"`
	ToAddress   string   `json:"toAddress"`
	Amount      float64  `json:"amount"`
	ChainID     int64    `json:"chainId"`
	TokenSymbol string   `json:"tokenSymbol,omitempty"`
	Balance     *float64 `json:"currentBalance,omitempty"`
	GasEstimate *float64 `json:"gasEstimate,omitempty"`
}

// Result is the guardian verdict for one transfer.
type Result struct {
	ValidationResult
	RequiresDoubleConfirm bool     `json:"requiresDoubleConfirm"`
	Severity              Severity `json:"severity"`
}

// Err returns a CodeValidationBlocking error listing the issues, or nil
// when the transfer may proceed to user confirmation.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return xerrors.New(CodeValidationBlocking, strings.Join(r.Issues, "; "))
}
