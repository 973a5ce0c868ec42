package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// BalanceCache implements gateway.BalanceCache on redis. Values are decimal
// strings under "balance:{walletId}", so nothing ever passes through a float.
type BalanceCache struct {
	client *redis.Client
}

func NewBalanceCache(client *redis.Client) *BalanceCache {
	return &BalanceCache{client: client}
}

func key(walletID string) string {
	return "balance:" + walletID
}

func (c *BalanceCache) Get(ctx context.Context, walletID string) (decimal.Decimal, bool, error) {
	val, err := c.client.Get(ctx, key(walletID)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("cache get: %w", err)
	}

	balance, err := decimal.NewFromString(val)
	if err != nil {
		// A corrupt entry behaves like a miss; the read path repopulates it.
		return decimal.Zero, false, nil
	}
	return balance, true, nil
}

func (c *BalanceCache) Set(ctx context.Context, walletID string, balance decimal.Decimal, ttl time.Duration) error {
	if err := c.client.Set(ctx, key(walletID), balance.String(), ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *BalanceCache) Delete(ctx context.Context, walletID string) error {
	if err := c.client.Del(ctx, key(walletID)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
