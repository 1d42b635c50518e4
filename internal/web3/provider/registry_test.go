package provider

import (
	"context"
	"math/big"
	"testing"

	xerrors "NovaWallet/internal/errors"
	"NovaWallet/internal/web3"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct{ closed bool }

func (f *fakeClient) ChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }
func (f *fakeClient) NativeBalance(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}
func (f *fakeClient) SuggestGasPrice(context.Context) (*big.Int, error) { return big.NewInt(1), nil }
func (f *fakeClient) Close()                                            { f.closed = true }

func TestRegistryResolvesByChainID(t *testing.T) {
	mainnet := &fakeClient{}
	reg := NewStaticRegistry(web3.DefaultCatalogue(), map[int64]web3.Client{1: mainnet})

	client, err := reg.Client(1)
	require.NoError(t, err)
	assert.Same(t, mainnet, client)
	assert.Equal(t, []int64{1}, reg.Chains())

	_, err = reg.Client(137)
	require.Error(t, err)
	assert.Equal(t, web3.CodeUnsupportedChain, xerrors.CodeOf(err))

	_, err = reg.Client(56)
	assert.Equal(t, web3.CodeUnsupportedChain, xerrors.CodeOf(err))

	reg.Close()
	assert.True(t, mainnet.closed)
	assert.Empty(t, reg.Chains())
}

func TestNewRegistryDialsCatalogueEndpoints(t *testing.T) {
	cat := web3.Catalogue{
		DefaultChain: 31337,
		Chains: []web3.ChainDefinition{
			{ID: 31337, Name: "Local", NativeSymbol: "ETH"},
			{ID: 4202, Name: "Lisk Sepolia", NativeSymbol: "LSK", RPCURL: "http://127.0.0.1:1"},
		},
	}

	reg, err := NewRegistry(context.Background(), cat, map[int64]string{31337: "http://127.0.0.1:2"})
	require.NoError(t, err)
	t.Cleanup(reg.Close)
	assert.Equal(t, []int64{4202, 31337}, reg.Chains())
}

func TestNewRegistryRequiresEndpoints(t *testing.T) {
	cat := web3.Catalogue{DefaultChain: 1, Chains: []web3.ChainDefinition{{ID: 1, Name: "Ethereum"}}}
	_, err := NewRegistry(context.Background(), cat, nil)
	assert.Error(t, err)
}
