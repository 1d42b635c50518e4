package preview

import (
	"time"

	xerrors "NovaWallet/internal/errors"
	"NovaWallet/internal/guardian"
)

// CodeCollaboratorFailure 表示余额或 gas 查询失败，预览无法生成。
const CodeCollaboratorFailure xerrors.Code = "COLLABORATOR_FAILURE"

func init() {
	xerrors.Register(CodeCollaboratorFailure, xerrors.Attributes{
		Message:   "balance or gas lookup failed",
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
		Alert:     true,
	})
}

// Details are the display fields of a transfer preview.
type Details struct {
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

// Validations mirrors the guardian verdict for the UI.
type Validations struct {
	HasBalance            bool              `json:"hasBalance"`
	Issues                []string          `json:"issues"`
	Warnings              []string          `json:"warnings"`
	Recommendations       []string          `json:"recommendations"`
	RequiresDoubleConfirm bool              `json:"requiresDoubleConfirm"`
	Severity              guardian.Severity `json:"severity"`
}

// TransactionPreview is the artifact handed to the chat layer. Success is
// false whenever the guardian reported a blocking issue.
type TransactionPreview struct {
	ID          string      `json:"id"`
	Success     bool        `json:"success"`
	Preview     Details     `json:"preview"`
	Validations Validations `json:"validations"`
	Message     string      `json:"message"`
	CreatedAt   time.Time   `json:"createdAt"`
}
