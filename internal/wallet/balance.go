package wallet

import (
	"context"
	"fmt"
	"strings"

	xerrors "NovaWallet/internal/errors"
	"NovaWallet/internal/web3"

	"github.com/ethereum/go-ethereum/common"
)

// CodeNetwork 表示链上 RPC 不可达或返回错误。
const CodeNetwork xerrors.Code = "NETWORK_ERROR"

func init() {
	xerrors.Register(CodeNetwork, xerrors.Attributes{
		Message:   "chain rpc unreachable",
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
	})
}

// Balance is the native balance of an address on one chain.
type Balance struct {
	Address     string  `json:"address"`
	ChainID     int64   `json:"chainId"`
	ChainName   string  `json:"chainName"`
	TokenSymbol string  `json:"tokenSymbol"`
	Native      float64 `json:"balance"`
	Wei         string  `json:"balanceWei"`
}

// BalanceLookup returns the current native balance of an address.
type BalanceLookup interface {
	Balance(ctx context.Context, address string, chainID int64) (Balance, error)
}

// ClientSource resolves a chain client by id. *provider.Registry implements it.
type ClientSource interface {
	Client(chainID int64) (web3.Client, error)
	Catalogue() web3.Catalogue
}

// ChainBalanceLookup reads balances straight from the chain RPC.
type ChainBalanceLookup struct {
	source ClientSource
}

// NewChainBalanceLookup creates a lookup backed by the given client source.
func NewChainBalanceLookup(source ClientSource) *ChainBalanceLookup {
	return &ChainBalanceLookup{source: source}
}

// Balance fails with web3.CodeUnsupportedChain for chains outside the
// catalogue and with CodeNetwork when the RPC call fails.
func (l *ChainBalanceLookup) Balance(ctx context.Context, address string, chainID int64) (Balance, error) {
	address = strings.TrimSpace(address)
	if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return Balance{}, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("地址格式无效: %q", address))
	}
	def, err := l.source.Catalogue().Require(chainID)
	if err != nil {
		return Balance{}, err
	}
	client, err := l.source.Client(chainID)
	if err != nil {
		return Balance{}, err
	}

	wei, err := client.NativeBalance(ctx, common.HexToAddress(address))
	if err != nil {
		return Balance{}, xerrors.Wrap(CodeNetwork, err, fmt.Sprintf("查询 %s 余额失败", def.Name),
			xerrors.WithMetadata("chain_id", fmt.Sprint(chainID)))
	}

	return Balance{
		Address:     address,
		ChainID:     chainID,
		ChainName:   def.Name,
		TokenSymbol: def.NativeSymbol,
		Native:      web3.WeiToEther(wei),
		Wei:         wei.String(),
	}, nil
}
