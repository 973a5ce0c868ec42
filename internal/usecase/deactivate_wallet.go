package usecase

import (
	"context"
	"fmt"

	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/gateway"
)

type DeactivateWalletUseCase struct {
	wallets gateway.WalletRepository
	cache   gateway.BalanceCache
}

func NewDeactivateWallet(wallets gateway.WalletRepository, cache gateway.BalanceCache) *DeactivateWalletUseCase {
	return &DeactivateWalletUseCase{wallets: wallets, cache: cache}
}

// Execute soft-deletes a wallet. The zero-balance guard is checked against
// the authoritative store row, and the flip itself is version-predicated, so
// a settlement racing the deactivation makes one of the two lose cleanly.
// Deactivation is terminal; there is no reactivation path.
func (uc *DeactivateWalletUseCase) Execute(ctx context.Context, walletID string) (*domain.Wallet, error) {
	wallet, err := uc.wallets.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if !wallet.IsActive {
		return nil, domain.ErrWalletNotFound
	}
	if !wallet.Balance.IsZero() {
		return nil, domain.ErrWalletNotEmpty
	}

	affected, err := uc.wallets.Deactivate(ctx, walletID, wallet.Version)
	if err != nil {
		return nil, fmt.Errorf("deactivate wallet: %w", err)
	}
	if affected == 0 {
		return nil, domain.ErrConcurrencyConflict
	}

	// Best effort: a missed delete just leaves an entry that expires on TTL.
	_ = uc.cache.Delete(ctx, walletID)

	wallet.IsActive = false
	wallet.Version++
	return wallet, nil
}
