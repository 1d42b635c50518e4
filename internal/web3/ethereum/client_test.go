package ethereum

import (
	"context"
	"math/big"
	"testing"
	"time"

	"NovaWallet/internal/web3"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
)

func TestClientReadsSimulatedChain(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	funded := crypto.PubkeyToAddress(key.PublicKey)
	oneAndHalf := new(big.Int).Mul(big.NewInt(15), big.NewInt(params.Ether/10))

	backend := simulated.NewBackend(types.GenesisAlloc{
		funded: {Balance: oneAndHalf},
	})
	t.Cleanup(func() { _ = backend.Close() })

	client := NewReaderClient("simulated", 1337, backend.Client())

	balance, err := client.NativeBalance(ctx, funded)
	if err != nil {
		t.Fatalf("native balance: %v", err)
	}
	if balance.Cmp(oneAndHalf) != 0 {
		t.Fatalf("unexpected balance %s", balance)
	}
	if got := web3.WeiToEther(balance); got != 1.5 {
		t.Fatalf("expected 1.5 ether, got %v", got)
	}

	empty, err := client.NativeBalance(ctx, common.HexToAddress("0x00000000000000000000000000000000000000aa"))
	if err != nil {
		t.Fatalf("native balance for empty account: %v", err)
	}
	if empty.Sign() != 0 {
		t.Fatalf("expected empty account, got %s", empty)
	}

	price, err := client.SuggestGasPrice(ctx)
	if err != nil {
		t.Fatalf("suggest gas price: %v", err)
	}
	if price == nil || price.Sign() < 0 {
		t.Fatalf("unexpected gas price %v", price)
	}

	if _, err := client.ChainID(ctx); err != nil {
		t.Fatalf("chain id: %v", err)
	}
}

func TestClosedClientRefusesCalls(t *testing.T) {
	backend := simulated.NewBackend(types.GenesisAlloc{})
	t.Cleanup(func() { _ = backend.Close() })

	client := NewReaderClient("simulated", 1337, backend.Client())
	client.Close()

	if _, err := client.SuggestGasPrice(context.Background()); err == nil {
		t.Fatal("expected error after close")
	}
}

func TestNewClientRequiresRPCURL(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{Name: "empty"}); err == nil {
		t.Fatal("expected error for missing rpc url")
	}
}

func TestTransferFee(t *testing.T) {
	fee := web3.TransferFee(big.NewInt(10_000_000_000))
	if got := web3.WeiToEther(fee); got != 0.00021 {
		t.Fatalf("expected 0.00021, got %v", got)
	}
}
