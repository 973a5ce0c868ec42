package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/gateway"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(t *testing.T, store *Store, balance decimal.Decimal) *domain.Wallet {
	t.Helper()
	wallet := &domain.Wallet{
		ID:       uuid.NewString(),
		UserID:   uuid.NewString(),
		Balance:  balance,
		IsActive: true,
	}
	require.NoError(t, store.Wallets().Create(context.Background(), wallet))
	return wallet
}

func TestConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	wallet := newTestWallet(t, store, decimal.NewFromInt(10))

	affected, err := store.Wallets().ConditionalUpdate(ctx, wallet.ID, 0, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	stored, err := store.Wallets().GetByID(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, int64(1), stored.Version)

	t.Run("stale version misses", func(t *testing.T) {
		affected, err := store.Wallets().ConditionalUpdate(ctx, wallet.ID, 0, decimal.NewFromInt(5))
		require.NoError(t, err)
		assert.Zero(t, affected)
	})

	t.Run("overdraft misses", func(t *testing.T) {
		affected, err := store.Wallets().ConditionalUpdate(ctx, wallet.ID, 1, decimal.NewFromInt(-100))
		require.NoError(t, err)
		assert.Zero(t, affected)
	})

	t.Run("deactivated wallet misses", func(t *testing.T) {
		closed := newTestWallet(t, store, decimal.Zero)
		affected, err := store.Wallets().Deactivate(ctx, closed.ID, 0)
		require.NoError(t, err)
		require.Equal(t, int64(1), affected)

		affected, err = store.Wallets().ConditionalUpdate(ctx, closed.ID, 1, decimal.NewFromInt(5))
		require.NoError(t, err)
		assert.Zero(t, affected)
	})

	t.Run("unknown wallet misses", func(t *testing.T) {
		affected, err := store.Wallets().ConditionalUpdate(ctx, uuid.NewString(), 0, decimal.NewFromInt(1))
		require.NoError(t, err)
		assert.Zero(t, affected)
	})
}

func TestUowRollback(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	wallet := newTestWallet(t, store, decimal.NewFromInt(10))
	boom := errors.New("boom")

	row := domain.NewDeposit(wallet.ID, decimal.NewFromInt(5), uuid.NewString(), nil, nil)
	err := store.Uow().Run(ctx, func(txCtx context.Context) error {
		tx := txCtx.Value(gateway.TransactionKey)
		walletsTx := store.Wallets().WithTx(tx)
		ledgerTx := store.Ledger().WithTx(tx)

		if err := ledgerTx.CreateBatch(txCtx, []*domain.Transaction{row}); err != nil {
			return err
		}
		if _, err := walletsTx.ConditionalUpdate(txCtx, wallet.ID, 0, decimal.NewFromInt(5)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Every write inside the failed unit is undone.
	stored, err := store.Wallets().GetByID(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, int64(0), stored.Version)

	_, err = store.Ledger().GetByOperationID(ctx, row.OperationID)
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestCreateBatchDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	wallet := newTestWallet(t, store, decimal.Zero)

	row := domain.NewDeposit(wallet.ID, decimal.NewFromInt(1), uuid.NewString(), nil, nil)
	require.NoError(t, store.Ledger().CreateBatch(ctx, []*domain.Transaction{row}))

	dup := domain.NewDeposit(wallet.ID, decimal.NewFromInt(1), row.OperationID, nil, nil)
	err := store.Ledger().CreateBatch(ctx, []*domain.Transaction{dup})
	assert.ErrorIs(t, err, domain.ErrDuplicateOperation)
}
