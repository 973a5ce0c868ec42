package usecase

import (
	"context"

	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/gateway"
)

type GetTransactionUseCase struct {
	ledger gateway.LedgerRepository
}

func NewGetTransaction(ledger gateway.LedgerRepository) *GetTransactionUseCase {
	return &GetTransactionUseCase{ledger: ledger}
}

func (uc *GetTransactionUseCase) Execute(ctx context.Context, operationID string) (*domain.Transaction, error) {
	return uc.ledger.GetByOperationID(ctx, operationID)
}

// ListByWallet pages through a wallet's ledger history, newest first.
func (uc *GetTransactionUseCase) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]*domain.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return uc.ledger.ListByWallet(ctx, walletID, limit, offset)
}
