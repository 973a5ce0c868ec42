package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/gateway"
	"github.com/ledgerkit/walletcore/internal/settlement"
	"github.com/shopspring/decimal"
)

// OperationInput carries a validated deposit or withdrawal request. When the
// caller does not supply an OperationID one is generated, which also makes
// the operation non-replayable by that caller.
type OperationInput struct {
	WalletID    string
	Amount      decimal.Decimal
	OperationID string
	Description *string
	Metadata    map[string]any
}

// OperationOutput returns the ledger row recorded (or replayed) for the
// request. Replayed is true when the idempotency guard matched an earlier
// request and nothing new was written or enqueued.
type OperationOutput struct {
	Transaction *domain.Transaction
	Replayed    bool
}

type CreateDepositUseCase struct {
	wallets   gateway.WalletRepository
	ledger    gateway.LedgerRepository
	guard     *IdempotencyGuard
	publisher gateway.JobPublisher
}

func NewCreateDeposit(
	wallets gateway.WalletRepository,
	ledger gateway.LedgerRepository,
	guard *IdempotencyGuard,
	publisher gateway.JobPublisher,
) *CreateDepositUseCase {
	return &CreateDepositUseCase{
		wallets:   wallets,
		ledger:    ledger,
		guard:     guard,
		publisher: publisher,
	}
}

// Execute records a PENDING deposit row and enqueues its settlement job. The
// balance mutation itself happens asynchronously in the settlement worker.
func (uc *CreateDepositUseCase) Execute(ctx context.Context, input OperationInput) (*OperationOutput, error) {
	if !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if input.OperationID == "" {
		input.OperationID = uuid.NewString()
	}

	// Dedup before any side effect: a retried request gets the original row
	// back, untouched.
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

	row := domain.NewDeposit(input.WalletID, input.Amount, input.OperationID, input.Description, input.Metadata)
	if err := uc.ledger.CreateBatch(ctx, []*domain.Transaction{row}); err != nil {
		return nil, fmt.Errorf("record deposit: %w", err)
	}

	job := settlement.NewDepositJob(row)
	if err := uc.publisher.Publish(ctx, job.RoutingKey(), job); err != nil {
		// The row stays PENDING; the sweeper re-publishes it later.
		return nil, fmt.Errorf("%w: %v", domain.ErrQueueDispatch, err)
	}

	return &OperationOutput{Transaction: row}, nil
}

// requireActiveWallet enforces the request-side precondition shared by the
// mutating operations: a missing or deactivated wallet fails the whole
// request as not-found, and nothing is written.
func requireActiveWallet(ctx context.Context, wallets gateway.WalletRepository, walletID string) error {
	wallet, err := wallets.GetByID(ctx, walletID)
	if err != nil {
		return err
	}
	if !wallet.IsActive {
		return domain.ErrWalletNotFound
	}
	return nil
}
