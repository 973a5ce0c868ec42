package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/gateway"
	"github.com/shopspring/decimal"
)

type CreateWalletInput struct {
	UserID         string
	InitialBalance decimal.Decimal
}

type CreateWalletUseCase struct {
	wallets gateway.WalletRepository
}

func NewCreateWallet(wallets gateway.WalletRepository) *CreateWalletUseCase {
	return &CreateWalletUseCase{wallets: wallets}
}

// Execute provisions the single wallet a user may hold. The user-uniqueness
// constraint in the store is the real arbiter; the lookup here only gives a
// friendlier answer on the common path.
func (uc *CreateWalletUseCase) Execute(ctx context.Context, input CreateWalletInput) (*domain.Wallet, error) {
	if input.InitialBalance.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	existing, err := uc.wallets.GetByUserID(ctx, input.UserID)
	if err != nil && !errors.Is(err, domain.ErrWalletNotFound) {
		return nil, fmt.Errorf("wallet lookup: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrWalletAlreadyExists
	}

	wallet := &domain.Wallet{
		ID:       uuid.NewString(),
		UserID:   input.UserID,
		Balance:  input.InitialBalance,
		IsActive: true,
		Version:  0,
	}
	if err := uc.wallets.Create(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}
