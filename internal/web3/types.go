package web3

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

// TransferGasLimit is the gas consumed by a plain value transfer.
const TransferGasLimit = 21000

// Client is the read-only view of an EVM chain the wallet needs: native
// balances and the current gas price. Nothing here signs or broadcasts.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	NativeBalance(ctx context.Context, address common.Address) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	Close()
}

// WeiToEther converts a wei amount into a float ether value for display and
// guardian arithmetic.
func WeiToEther(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	// 2^53 以内的整数可精确转换为 float64。
	if wei.IsInt64() {
		if v := wei.Int64(); v > -(1<<53) && v < 1<<53 {
			return float64(v) / params.Ether
		}
	}
	value := new(big.Float).SetInt(wei)
	value.Quo(value, new(big.Float).SetInt64(params.Ether))
	f, _ := value.Float64()
	return f
}

// TransferFee returns the native cost of a plain transfer at gasPrice.
func TransferFee(gasPrice *big.Int) *big.Int {
	if gasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(gasPrice, big.NewInt(TransferGasLimit))
}
