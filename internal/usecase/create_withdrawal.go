package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/gateway"
	"github.com/ledgerkit/walletcore/internal/settlement"
)

type CreateWithdrawalUseCase struct {
	wallets   gateway.WalletRepository
	ledger    gateway.LedgerRepository
	guard     *IdempotencyGuard
	publisher gateway.JobPublisher
}

func NewCreateWithdrawal(
	wallets gateway.WalletRepository,
	ledger gateway.LedgerRepository,
	guard *IdempotencyGuard,
	publisher gateway.JobPublisher,
) *CreateWithdrawalUseCase {
	return &CreateWithdrawalUseCase{
		wallets:   wallets,
		ledger:    ledger,
		guard:     guard,
		publisher: publisher,
	}
}

// Execute records a PENDING withdrawal row and enqueues its settlement job.
// Sufficiency of funds is deliberately not checked here: only the settlement
// processor's store read is authoritative, and an insufficient balance there
// marks the row FAILED.
func (uc *CreateWithdrawalUseCase) Execute(ctx context.Context, input OperationInput) (*OperationOutput, error) {
	if !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if input.OperationID == "" {
		input.OperationID = uuid.NewString()
	}

	existing, err := uc.guard.FindByOperationID(ctx, input.OperationID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &OperationOutput{Transaction: existing, Replayed: true}, nil
	}

	if err := requireActiveWallet(ctx, uc.wallets, input.WalletID); err != nil {
		return nil, err
	}

	row := domain.NewWithdrawal(input.WalletID, input.Amount, input.OperationID, input.Description, input.Metadata)
	if err := uc.ledger.CreateBatch(ctx, []*domain.Transaction{row}); err != nil {
		return nil, fmt.Errorf("record withdrawal: %w", err)
	}

	job := settlement.NewWithdrawalJob(row)
	if err := uc.publisher.Publish(ctx, job.RoutingKey(), job); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQueueDispatch, err)
	}

	return &OperationOutput{Transaction: row}, nil
}
