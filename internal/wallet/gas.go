package wallet

import (
	"context"
	"fmt"

	xerrors "NovaWallet/internal/errors"
	"NovaWallet/internal/web3"
)

// DefaultTransferGas 为 21000 gas × 10 gwei，用作静态估算的兜底值。
const DefaultTransferGas = 0.00021

// GasEstimator returns the native cost of a plain transfer on a chain.
// Estimates are advisory only.
type GasEstimator interface {
	Estimate(ctx context.Context, chainID int64) (float64, error)
}

// StaticGasEstimator returns fixed per-chain values.
type StaticGasEstimator struct {
	perChain map[int64]float64
	fallback float64
}

// NewStaticGasEstimator creates an estimator with per-chain overrides and a
// fallback for every other chain.
func NewStaticGasEstimator(perChain map[int64]float64, fallback float64) *StaticGasEstimator {
	if fallback <= 0 {
		fallback = DefaultTransferGas
	}
	table := make(map[int64]float64, len(perChain))
	for id, v := range perChain {
		table[id] = v
	}
	return &StaticGasEstimator{perChain: table, fallback: fallback}
}

// Estimate never fails.
func (s *StaticGasEstimator) Estimate(_ context.Context, chainID int64) (float64, error) {
	if v, ok := s.perChain[chainID]; ok {
		return v, nil
	}
	return s.fallback, nil
}

// RPCGasEstimator prices a 21000-gas transfer at the node's suggested gas price.
type RPCGasEstimator struct {
	source ClientSource
}

// NewRPCGasEstimator creates an estimator that queries the chain.
func NewRPCGasEstimator(source ClientSource) *RPCGasEstimator {
	return &RPCGasEstimator{source: source}
}

// Estimate fails with CodeNetwork when the gas price cannot be fetched.
func (r *RPCGasEstimator) Estimate(ctx context.Context, chainID int64) (float64, error) {
	client, err := r.source.Client(chainID)
	if err != nil {
		return 0, err
	}
	price, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return 0, xerrors.Wrap(CodeNetwork, err, "获取 gas 价格失败",
			xerrors.WithMetadata("chain_id", fmt.Sprint(chainID)))
	}
	return web3.WeiToEther(web3.TransferFee(price)), nil
}
