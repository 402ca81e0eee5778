package ledger

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const DefaultBalanceCacheMaxEntries = 1000

// DefaultBalanceCacheTTL bounds gateway load during UI polling bursts.
// Entries are invalidated eagerly on any write (top-up or sponsorship
// success), so staleness only lasts this long on the read path.
const DefaultBalanceCacheTTL = 10 * time.Second

// BalanceCacheInterface defines the balance cache operations.
type BalanceCacheInterface interface {
	Get(walletAddress string) (*Balance, bool)
	Set(walletAddress string, balance *Balance)
	Invalidate(walletAddress string)
}

var _ BalanceCacheInterface = (*BalanceCache)(nil)

// BalanceCache is a short-TTL cache of gateway balances keyed per wallet
// address. It is an explicit handle, not ambient state, so the TTL behavior
// is testable in isolation.
type BalanceCache struct {
	cache *expirable.LRU[string, *Balance]
}

// NewBalanceCache creates a BalanceCache with the given TTL and entry bound.
func NewBalanceCache(ttl time.Duration, maxEntries int) (*BalanceCache, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be greater than zero")
	}
	if maxEntries <= 0 {
		return nil, fmt.Errorf("maxEntries must be greater than zero")
	}

	return &BalanceCache{
		cache: expirable.NewLRU[string, *Balance](maxEntries, nil, ttl),
	}, nil
}

// Get returns the cached balance for a wallet, if present and unexpired.
func (c *BalanceCache) Get(walletAddress string) (*Balance, bool) {
	if walletAddress == "" {
		return nil, false
	}
	return c.cache.Get(walletAddress)
}

// Set stores a freshly fetched balance.
func (c *BalanceCache) Set(walletAddress string, balance *Balance) {
	if walletAddress == "" || balance == nil {
		return
	}
	c.cache.Add(walletAddress, balance)
}

// Invalidate drops the cached balance for a wallet. Called after any write
// the gateway acknowledges, so the next read re-fetches.
func (c *BalanceCache) Invalidate(walletAddress string) {
	c.cache.Remove(walletAddress)
}
