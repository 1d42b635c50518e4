package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	xerrors "NovaWallet/internal/errors"
	"NovaWallet/internal/web3"
	"NovaWallet/internal/web3/ethereum"
	"NovaWallet/internal/web3/provider"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const holder = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

type stubClient struct {
	balance  *big.Int
	gasPrice *big.Int
	err      error
}

func (s *stubClient) ChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }
func (s *stubClient) NativeBalance(context.Context, common.Address) (*big.Int, error) {
	return s.balance, s.err
}
func (s *stubClient) SuggestGasPrice(context.Context) (*big.Int, error) { return s.gasPrice, s.err }
func (s *stubClient) Close()                                            {}

type countingLookup struct {
	calls atomic.Int32
	bal   Balance
	err   error
}

func (c *countingLookup) Balance(context.Context, string, int64) (Balance, error) {
	c.calls.Add(1)
	return c.bal, c.err
}

func TestChainBalanceLookupReadsSimulatedChain(t *testing.T) {
	addr := common.HexToAddress(holder)
	funds := new(big.Int).Mul(big.NewInt(25), big.NewInt(params.Ether/10))
	backend := simulated.NewBackend(types.GenesisAlloc{addr: {Balance: funds}})
	t.Cleanup(func() { _ = backend.Close() })

	client := ethereum.NewReaderClient("Lisk Sepolia", 4202, backend.Client())
	reg := provider.NewStaticRegistry(web3.DefaultCatalogue(), map[int64]web3.Client{4202: client})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bal, err := NewChainBalanceLookup(reg).Balance(ctx, holder, 4202)
	require.NoError(t, err)
	assert.Equal(t, 2.5, bal.Native)
	assert.Equal(t, "LSK", bal.TokenSymbol)
	assert.Equal(t, "Lisk Sepolia", bal.ChainName)
	assert.Equal(t, funds.String(), bal.Wei)
}

func TestChainBalanceLookupErrors(t *testing.T) {
	failing := &stubClient{err: errors.New("connection refused")}
	reg := provider.NewStaticRegistry(web3.DefaultCatalogue(), map[int64]web3.Client{1: failing})
	lookup := NewChainBalanceLookup(reg)
	ctx := context.Background()

	_, err := lookup.Balance(ctx, "742d35Cc6634C0532925a3b844Bc454e4438f44e", 1)
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))

	_, err = lookup.Balance(ctx, holder, 56)
	assert.Equal(t, web3.CodeUnsupportedChain, xerrors.CodeOf(err))

	_, err = lookup.Balance(ctx, holder, 137)
	assert.Equal(t, web3.CodeUnsupportedChain, xerrors.CodeOf(err))

	_, err = lookup.Balance(ctx, holder, 1)
	require.Error(t, err)
	assert.Equal(t, CodeNetwork, xerrors.CodeOf(err))
	assert.True(t, xerrors.RetryableError(err))
}

func TestCachedBalanceLookupServesRepeatReads(t *testing.T) {
	inner := &countingLookup{bal: Balance{Address: holder, ChainID: 1, Native: 3}}
	cached, err := NewCachedBalanceLookup(inner, time.Minute)
	require.NoError(t, err)
	t.Cleanup(cached.Close)

	ctx := context.Background()
	first, err := cached.Balance(ctx, holder, 1)
	require.NoError(t, err)
	cached.Wait()

	second, err := cached.Balance(ctx, holder, 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, inner.calls.Load())

	cached.Invalidate(holder, 1)
	cached.Wait()
	_, err = cached.Balance(ctx, holder, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestCachedBalanceLookupDoesNotCacheFailures(t *testing.T) {
	inner := &countingLookup{err: errors.New("boom")}
	cached, err := NewCachedBalanceLookup(inner, time.Minute)
	require.NoError(t, err)
	t.Cleanup(cached.Close)

	for i := 0; i < 2; i++ {
		_, err := cached.Balance(context.Background(), holder, 1)
		require.Error(t, err)
		cached.Wait()
	}
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestStaticGasEstimator(t *testing.T) {
	est := NewStaticGasEstimator(map[int64]float64{1: 0.002}, 0)
	ctx := context.Background()

	got, err := est.Estimate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.002, got)

	got, err = est.Estimate(ctx, 4202)
	require.NoError(t, err)
	assert.Equal(t, DefaultTransferGas, got)
}

func TestRPCGasEstimator(t *testing.T) {
	tenGwei := big.NewInt(10 * params.GWei)
	reg := provider.NewStaticRegistry(web3.DefaultCatalogue(), map[int64]web3.Client{
		1:    &stubClient{gasPrice: tenGwei},
		4202: &stubClient{err: errors.New("timeout")},
	})
	est := NewRPCGasEstimator(reg)

	got, err := est.Estimate(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.00021, got, 1e-12)

	_, err = est.Estimate(context.Background(), 4202)
	assert.Equal(t, CodeNetwork, xerrors.CodeOf(err))

	_, err = est.Estimate(context.Background(), 999)
	assert.Equal(t, web3.CodeUnsupportedChain, xerrors.CodeOf(err))
}
