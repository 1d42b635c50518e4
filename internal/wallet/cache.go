package wallet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
)

const defaultBalanceTTL = 15 * time.Second

// CachedBalanceLookup keeps recent balances in memory so repeated chat turns
// do not hit the RPC for every message.
type CachedBalanceLookup struct {
	next  BalanceLookup
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCachedBalanceLookup wraps next with a TTL cache. A non-positive ttl
// uses the default.
func NewCachedBalanceLookup(next BalanceLookup, ttl time.Duration) (*CachedBalanceLookup, error) {
	if ttl <= 0 {
		ttl = defaultBalanceTTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("创建余额缓存失败: %w", err)
	}
	return &CachedBalanceLookup{next: next, cache: cache, ttl: ttl}, nil
}

// Balance serves from cache when fresh. Failures are never cached.
func (c *CachedBalanceLookup) Balance(ctx context.Context, address string, chainID int64) (Balance, error) {
	key := cacheKey(address, chainID)
	if v, ok := c.cache.Get(key); ok {
		if bal, ok := v.(Balance); ok {
			return bal, nil
		}
	}
	bal, err := c.next.Balance(ctx, address, chainID)
	if err != nil {
		return Balance{}, err
	}
	c.cache.SetWithTTL(key, bal, 1, c.ttl)
	return bal, nil
}

// Invalidate drops the cached balance for an address, e.g. after the user
// confirms a transfer.
func (c *CachedBalanceLookup) Invalidate(address string, chainID int64) {
	c.cache.Del(cacheKey(address, chainID))
}

// Wait blocks until pending cache writes are applied.
func (c *CachedBalanceLookup) Wait() {
	c.cache.Wait()
}

// Close stops the cache's background goroutines.
func (c *CachedBalanceLookup) Close() {
	c.cache.Close()
}

func cacheKey(address string, chainID int64) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(strings.TrimSpace(address)))
}
