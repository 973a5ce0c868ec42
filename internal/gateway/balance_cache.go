package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceCache holds a derived, expendable copy of wallet balances. It may be
// absent, stale within its TTL, or evicted at any moment without breaking
// correctness: every mutation path re-reads the store before committing.
type BalanceCache interface {
	// Get returns the cached balance and whether the key was present.
	Get(ctx context.Context, walletID string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, walletID string, balance decimal.Decimal, ttl time.Duration) error
	Delete(ctx context.Context, walletID string) error
}
