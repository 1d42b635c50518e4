package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	xerrors "NovaWallet/internal/errors"
	"NovaWallet/internal/web3"
	"NovaWallet/internal/web3/ethereum"
)

// Registry manages a set of chain clients keyed by chain id.
type Registry struct {
	mu      sync.RWMutex
	catalog web3.Catalogue
	clients map[int64]web3.Client
}

// NewRegistry instantiates one EVM client per catalogue entry that has an
// RPC endpoint. rpcOverrides replaces the catalogue endpoint for a chain.
func NewRegistry(ctx context.Context, catalog web3.Catalogue, rpcOverrides map[int64]string) (*Registry, error) {
	reg := &Registry{catalog: catalog, clients: make(map[int64]web3.Client)}
	for _, chain := range catalog.Chains {
		rpcURL := strings.TrimSpace(chain.RPCURL)
		if override := strings.TrimSpace(rpcOverrides[chain.ID]); override != "" {
			rpcURL = override
		}
		if rpcURL == "" {
			continue
		}
		client, err := ethereum.NewClient(ctx, ethereum.Config{
			ChainID: chain.ID,
			Name:    chain.Name,
			RPCURL:  rpcURL,
		})
		if err != nil {
			reg.Close()
			return nil, fmt.Errorf("初始化链 %s 失败: %w", chain.Name, err)
		}
		reg.clients[chain.ID] = client
	}
	if len(reg.clients) == 0 {
		return nil, errors.New("未配置任何链的 RPC 端点")
	}
	return reg, nil
}

// NewStaticRegistry builds a registry from pre-built clients.
func NewStaticRegistry(catalog web3.Catalogue, clients map[int64]web3.Client) *Registry {
	reg := &Registry{catalog: catalog, clients: make(map[int64]web3.Client, len(clients))}
	for id, client := range clients {
		reg.clients[id] = client
	}
	return reg
}

// Catalogue returns the chain catalogue backing the registry.
func (r *Registry) Catalogue() web3.Catalogue {
	return r.catalog
}

// Client returns the client for chainID. Chains outside the catalogue, or
// without a configured endpoint, yield CodeUnsupportedChain.
func (r *Registry) Client(chainID int64) (web3.Client, error) {
	if r == nil {
		return nil, errors.New("未初始化的链客户端注册表")
	}
	if _, err := r.catalog.Require(chainID); err != nil {
		return nil, err
	}
	r.mu.RLock()
	client, ok := r.clients[chainID]
	r.mu.RUnlock()
	if !ok {
		return nil, r.unsupported(chainID)
	}
	return client, nil
}

func (r *Registry) unsupported(chainID int64) error {
	return xerrors.New(web3.CodeUnsupportedChain,
		fmt.Sprintf("链 %s 未配置 RPC 端点", r.catalog.NameOf(chainID)),
		xerrors.WithMetadata("chain_id", fmt.Sprint(chainID)))
}

// Chains returns the ids of chains with a live client, in ascending order.
func (r *Registry) Chains() []int64 {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Close releases all clients managed by the registry.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, client := range r.clients {
		if client != nil {
			client.Close()
		}
		delete(r.clients, id)
	}
}
