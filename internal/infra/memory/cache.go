package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type cacheEntry struct {
	balance   decimal.Decimal
	expiresAt time.Time
}

// Cache is an in-memory gateway.BalanceCache with real TTL expiry.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

func (c *Cache) Get(_ context.Context, walletID string) (decimal.Decimal, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[walletID]
	if !ok {
		return decimal.Zero, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, walletID)
		return decimal.Zero, false, nil
	}
	return entry.balance, true, nil
}

func (c *Cache) Set(_ context.Context, walletID string, balance decimal.Decimal, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[walletID] = cacheEntry{balance: balance, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *Cache) Delete(_ context.Context, walletID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, walletID)
	return nil
}
