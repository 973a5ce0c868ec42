package usecase

import (
	"context"
	"time"

	"github.com/ledgerkit/walletcore/internal/gateway"
	"github.com/shopspring/decimal"
)

// BalanceCacheTTL bounds how stale a cached balance may be. The settlement
// processor refreshes the entry after every commit, so in practice entries
// age out only for idle wallets.
const BalanceCacheTTL = 300 * time.Second

type GetBalanceUseCase struct {
	wallets gateway.WalletRepository
	cache   gateway.BalanceCache
}

func NewGetBalance(wallets gateway.WalletRepository, cache gateway.BalanceCache) *GetBalanceUseCase {
	return &GetBalanceUseCase{wallets: wallets, cache: cache}
}

// Execute reads the balance through the cache: hit returns the cached value,
// miss falls back to the store and repopulates. The cache is never consulted
// on the mutation path, so a stale hit is bounded noise, never corruption.
func (uc *GetBalanceUseCase) Execute(ctx context.Context, walletID string) (decimal.Decimal, error) {
	if balance, ok, err := uc.cache.Get(ctx, walletID); err == nil && ok {
		return balance, nil
	}

	wallet, err := uc.wallets.GetByID(ctx, walletID)
	if err != nil {
		return decimal.Zero, err
	}

	if err := uc.cache.Set(ctx, walletID, wallet.Balance, BalanceCacheTTL); err != nil {
		// Misses just fall through to the store next time.
		return wallet.Balance, nil
	}
	return wallet.Balance, nil
}
