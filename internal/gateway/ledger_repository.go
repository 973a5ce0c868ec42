package gateway

import (
	"context"
	"time"

	"github.com/ledgerkit/walletcore/internal/domain"
)

// LedgerRepository is the persistence contract for transaction rows. Rows are
// append-only: content is written once by CreateBatch, and only the status
// column ever changes afterwards, PENDING to terminal, exactly once.
type LedgerRepository interface {
	// CreateBatch inserts 1 or 2 PENDING rows as a single atomic write; a
	// transfer pair is never observable half-created. A duplicate operation
	// id surfaces domain.ErrDuplicateOperation.
	CreateBatch(ctx context.Context, rows []*domain.Transaction) error

	GetByOperationID(ctx context.Context, operationID string) (*domain.Transaction, error)
	GetByCorrelationID(ctx context.Context, correlationID string) ([]*domain.Transaction, error)

	// UpdateStatusByOperationID moves a single row to a terminal status. Only
	// PENDING rows transition; a terminal row is left untouched.
	UpdateStatusByOperationID(ctx context.Context, operationID string, status domain.TransactionStatus) error

	// UpdateStatusByCorrelationID moves both rows of a transfer together, so
	// a pair is always COMPLETED together or FAILED together.
	UpdateStatusByCorrelationID(ctx context.Context, correlationID string, status domain.TransactionStatus) error

	ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]*domain.Transaction, error)

	// ListStalePending returns PENDING rows created before olderThan, oldest
	// first, for the settlement sweeper to re-publish.
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Transaction, error)

	WithTx(tx TransactionObject) LedgerRepository
}
