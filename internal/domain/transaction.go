package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindDeposit     TransactionKind = "DEPOSIT"
	KindWithdrawal  TransactionKind = "WITHDRAWAL"
	KindTransferOut TransactionKind = "TRANSFER_OUT"
	KindTransferIn  TransactionKind = "TRANSFER_IN"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
	// StatusCancelled is declared for forward compatibility. No operation
	// currently transitions a row into it.
	StatusCancelled TransactionStatus = "CANCELLED"
)

// Transaction is one immutable ledger entry: a single attempted movement on a
// single wallet. Content never changes after creation; only Status moves, and
// it moves exactly once, from PENDING to a terminal state.
//
// OperationID is globally unique and deduplicates single-sided operations.
// The two rows of a transfer share a CorrelationID, which deduplicates the
// pair as a whole, and each row names the other wallet as counterparty.
type Transaction struct {
	ID                   string
	OperationID          string
	CorrelationID        *string
	WalletID             string
	CounterpartyWalletID *string
	Amount               decimal.Decimal
	Kind                 TransactionKind
	Status               TransactionStatus
	Description          *string
	Metadata             map[string]any
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsTerminal reports whether the row has already been settled one way or the
// other. Settlement of a terminal row is a no-op; this is what makes
// at-least-once delivery safe.
func (t *Transaction) IsTerminal() bool {
	return t.Status != StatusPending
}

// NewDeposit builds a PENDING deposit row.
func NewDeposit(walletID string, amount decimal.Decimal, operationID string, description *string, metadata map[string]any) *Transaction {
	return &Transaction{
		ID:          uuid.NewString(),
		OperationID: operationID,
		WalletID:    walletID,
		Amount:      amount,
		Kind:        KindDeposit,
		Status:      StatusPending,
		Description: description,
		Metadata:    metadata,
	}
}

// NewWithdrawal builds a PENDING withdrawal row. Funds are not checked here;
// the settlement processor verifies the balance against the store.
func NewWithdrawal(walletID string, amount decimal.Decimal, operationID string, description *string, metadata map[string]any) *Transaction {
	return &Transaction{
		ID:          uuid.NewString(),
		OperationID: operationID,
		WalletID:    walletID,
		Amount:      amount,
		Kind:        KindWithdrawal,
		Status:      StatusPending,
		Description: description,
		Metadata:    metadata,
	}
}

// NewTransferPair builds the two rows of a transfer: TRANSFER_OUT on the
// source wallet and TRANSFER_IN on the destination, sharing one correlation
// id and referencing each other as counterparty. The pair must always be
// persisted as a unit.
func NewTransferPair(sourceWalletID, destinationWalletID string, amount decimal.Decimal, correlationID string, description *string, metadata map[string]any) (*Transaction, *Transaction) {
	out := &Transaction{
		ID:                   uuid.NewString(),
		OperationID:          uuid.NewString(),
		CorrelationID:        &correlationID,
		WalletID:             sourceWalletID,
		CounterpartyWalletID: &destinationWalletID,
		Amount:               amount,
		Kind:                 KindTransferOut,
		Status:               StatusPending,
		Description:          description,
		Metadata:             metadata,
	}
	in := &Transaction{
		ID:                   uuid.NewString(),
		OperationID:          uuid.NewString(),
		CorrelationID:        &correlationID,
		WalletID:             destinationWalletID,
		CounterpartyWalletID: &sourceWalletID,
		Amount:               amount,
		Kind:                 KindTransferIn,
		Status:               StatusPending,
		Description:          description,
		Metadata:             metadata,
	}
	return out, in
}
