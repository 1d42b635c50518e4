package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"NovaWallet/internal/web3"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Config describes how to construct an EVM compatible client.
type Config struct {
	ChainID int64
	Name    string
	RPCURL  string
}

// chainReader mirrors the subset of ethclient methods the wallet relies on.
// Both *ethclient.Client and the simulated backend client satisfy it.
type chainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Client implements web3.Client for EVM compatible chains.
type Client struct {
	name      string
	chainID   int64
	rpcClient *gethrpc.Client
	reader    chainReader
	mu        sync.Mutex
}

var _ web3.Client = (*Client)(nil)

// NewClient dials the configured RPC endpoint and returns a ready-to-use client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, fmt.Errorf("链 %s 未配置 RPC 地址", cfg.Name)
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接 %s 节点失败: %w", cfg.Name, err)
	}

	return &Client{
		name:      cfg.Name,
		chainID:   cfg.ChainID,
		rpcClient: rpcClient,
		reader:    ethclient.NewClient(rpcClient),
	}, nil
}

// NewReaderClient wraps an already connected reader, such as the client of a
// go-ethereum simulated backend.
func NewReaderClient(name string, chainID int64, reader chainReader) *Client {
	return &Client{name: name, chainID: chainID, reader: reader}
}

// Name returns the configured chain name.
func (c *Client) Name() string {
	return c.name
}

// Close releases network connections held by the client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ec, ok := c.reader.(*ethclient.Client); ok {
		ec.Close()
	} else if c.rpcClient != nil {
		c.rpcClient.Close()
	}
	c.rpcClient = nil
	c.reader = nil
}

func (c *Client) backend() (chainReader, error) {
	if c == nil {
		return nil, errors.New("未初始化的以太坊客户端")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader == nil {
		return nil, fmt.Errorf("链 %s 的客户端已关闭", c.name)
	}
	return c.reader, nil
}

// ChainID asks the node for its chain id.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	reader, err := c.backend()
	if err != nil {
		return nil, err
	}
	id, err := reader.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取链 ID 失败: %w", err)
	}
	return id, nil
}

// NativeBalance returns the latest native balance of address in wei.
func (c *Client) NativeBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	reader, err := c.backend()
	if err != nil {
		return nil, err
	}
	balance, err := reader.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("查询余额失败: %w", err)
	}
	return balance, nil
}

// SuggestGasPrice returns the node's current gas price suggestion in wei.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	reader, err := c.backend()
	if err != nil {
		return nil, err
	}
	price, err := reader.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取 gas 价格失败: %w", err)
	}
	return price, nil
}
