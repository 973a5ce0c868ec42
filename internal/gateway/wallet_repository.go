package gateway

import (
	"context"

	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/shopspring/decimal"
)

// WalletRepository is the persistence contract for wallets. The wallet row
// owns balance and version; nothing outside this interface mutates them.
type WalletRepository interface {
	// Create inserts a new active wallet. Returns domain.ErrWalletAlreadyExists
	// when the user already holds one (uniqueness on user id).
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id string) (*domain.Wallet, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)

	// ConditionalUpdate applies balance += delta and version += 1 only when
	// the row's version still equals expectedVersion and the wallet is still
	// active, and returns the number of rows that matched. Zero means
	// another writer committed first or the wallet was closed.
	ConditionalUpdate(ctx context.Context, id string, expectedVersion int64, delta decimal.Decimal) (int64, error)

	// Deactivate flips isActive off under the same version predicate plus a
	// zero-balance guard. Returns the affected row count.
	Deactivate(ctx context.Context, id string, expectedVersion int64) (int64, error)

	// WithTx returns a copy of the repository bound to an open unit of work.
	WithTx(tx TransactionObject) WalletRepository
}
