package usecase

import (
	"context"

	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/gateway"
)

type GetWalletUseCase struct {
	wallets gateway.WalletRepository
}

func NewGetWallet(wallets gateway.WalletRepository) *GetWalletUseCase {
	return &GetWalletUseCase{wallets: wallets}
}

func (uc *GetWalletUseCase) Execute(ctx context.Context, walletID string) (*domain.Wallet, error) {
	return uc.wallets.GetByID(ctx, walletID)
}

// ExecuteByUser resolves a wallet through its owning user.
func (uc *GetWalletUseCase) ExecuteByUser(ctx context.Context, userID string) (*domain.Wallet, error) {
	return uc.wallets.GetByUserID(ctx, userID)
}
