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

type TransferInput struct {
	SourceWalletID      string
	DestinationWalletID string
	Amount              decimal.Decimal
	CorrelationID       string
	Description         *string
	Metadata            map[string]any
}

// TransferOutput returns both rows of the pair, TRANSFER_OUT first.
type TransferOutput struct {
	Transactions []*domain.Transaction
	Replayed     bool
}

type CreateTransferUseCase struct {
	wallets   gateway.WalletRepository
	ledger    gateway.LedgerRepository
	uow       gateway.TransactionManager
	guard     *IdempotencyGuard
	publisher gateway.JobPublisher
}

func NewCreateTransfer(
	wallets gateway.WalletRepository,
	ledger gateway.LedgerRepository,
	uow gateway.TransactionManager,
	guard *IdempotencyGuard,
	publisher gateway.JobPublisher,
) *CreateTransferUseCase {
	return &CreateTransferUseCase{
		wallets:   wallets,
		ledger:    ledger,
		uow:       uow,
		guard:     guard,
		publisher: publisher,
	}
}

// Execute records the two PENDING rows of a transfer as one indivisible write
// and enqueues a single settlement job for the pair.
func (uc *CreateTransferUseCase) Execute(ctx context.Context, input TransferInput) (*TransferOutput, error) {
	if !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if input.SourceWalletID == input.DestinationWalletID {
		return nil, domain.ErrSelfTransfer
	}
	if input.CorrelationID == "" {
		input.CorrelationID = uuid.NewString()
	}

	// Transfers dedup on the correlation id shared by the pair, never on the
	// individual row ids.
	existing, err := uc.guard.FindByCorrelationID(ctx, input.CorrelationID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &TransferOutput{Transactions: orderPair(existing), Replayed: true}, nil
	}

	if err := requireActiveWallet(ctx, uc.wallets, input.SourceWalletID); err != nil {
		return nil, err
	}
	if err := requireActiveWallet(ctx, uc.wallets, input.DestinationWalletID); err != nil {
		return nil, err
	}

	out, in := domain.NewTransferPair(
		input.SourceWalletID,
		input.DestinationWalletID,
		input.Amount,
		input.CorrelationID,
		input.Description,
		input.Metadata,
	)

	err = uc.uow.Run(ctx, func(txCtx context.Context) error {
		txObj := txCtx.Value(gateway.TransactionKey)
		if txObj == nil {
			return fmt.Errorf("transaction missing from context")
		}
		return uc.ledger.WithTx(txObj).CreateBatch(txCtx, []*domain.Transaction{out, in})
	})
	if err != nil {
		return nil, fmt.Errorf("record transfer: %w", err)
	}

	job := settlement.NewTransferJob(out)
	if err := uc.publisher.Publish(ctx, job.RoutingKey(), job); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQueueDispatch, err)
	}

	return &TransferOutput{Transactions: []*domain.Transaction{out, in}}, nil
}

// orderPair puts the TRANSFER_OUT row first for a stable caller-facing shape.
func orderPair(rows []*domain.Transaction) []*domain.Transaction {
	if len(rows) == 2 && rows[0].Kind == domain.KindTransferIn {
		return []*domain.Transaction{rows[1], rows[0]}
	}
	return rows
}
