package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/settlement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTransfer(t *testing.T) {
	ctx := context.Background()
	f := newOperationFixture()
	source := f.newWallet(t, decimal.NewFromInt(100))
	destination := f.newWallet(t, decimal.Zero)
	uc := NewCreateTransfer(f.store.Wallets(), f.store.Ledger(), f.store.Uow(), f.guard, f.queue)

	correlationID := uuid.NewString()
	out, err := uc.Execute(ctx, TransferInput{
		SourceWalletID:      source.ID,
		DestinationWalletID: destination.ID,
		Amount:              decimal.NewFromInt(30),
		CorrelationID:       correlationID,
	})
	require.NoError(t, err)
	require.Len(t, out.Transactions, 2)

	outRow, inRow := out.Transactions[0], out.Transactions[1]
	assert.Equal(t, domain.KindTransferOut, outRow.Kind)
	assert.Equal(t, domain.KindTransferIn, inRow.Kind)
	assert.Equal(t, source.ID, outRow.WalletID)
	assert.Equal(t, destination.ID, inRow.WalletID)
	require.NotNil(t, outRow.CorrelationID)
	require.NotNil(t, inRow.CorrelationID)
	assert.Equal(t, correlationID, *outRow.CorrelationID)
	assert.Equal(t, correlationID, *inRow.CorrelationID)
	require.NotNil(t, outRow.CounterpartyWalletID)
	assert.Equal(t, destination.ID, *outRow.CounterpartyWalletID)
	require.NotNil(t, inRow.CounterpartyWalletID)
	assert.Equal(t, source.ID, *inRow.CounterpartyWalletID)
	assert.NotEqual(t, outRow.OperationID, inRow.OperationID)

	// One job settles the pair.
	jobs := f.queue.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, settlement.RoutingKeyTransfer, jobs[0].RoutingKey)
	job := jobs[0].Body.(settlement.Job)
	assert.Equal(t, correlationID, job.CorrelationID)
	assert.Equal(t, source.ID, job.SourceWalletID)
	assert.Equal(t, destination.ID, job.DestinationWalletID)

	t.Run("replay by correlation id", func(t *testing.T) {
		replayed, err := uc.Execute(ctx, TransferInput{
			SourceWalletID:      source.ID,
			DestinationWalletID: destination.ID,
			Amount:              decimal.NewFromInt(30),
			CorrelationID:       correlationID,
		})
		require.NoError(t, err)
		assert.True(t, replayed.Replayed)
		require.Len(t, replayed.Transactions, 2)
		assert.Equal(t, domain.KindTransferOut, replayed.Transactions[0].Kind)
		assert.Len(t, f.queue.Jobs(), 1, "replay must not enqueue")
	})

	t.Run("self transfer", func(t *testing.T) {
		_, err := uc.Execute(ctx, TransferInput{
			SourceWalletID:      source.ID,
			DestinationWalletID: source.ID,
			Amount:              decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, domain.ErrSelfTransfer)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := uc.Execute(ctx, TransferInput{
			SourceWalletID:      source.ID,
			DestinationWalletID: destination.ID,
			Amount:              decimal.NewFromInt(-5),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("unknown destination writes nothing", func(t *testing.T) {
		correlationID := uuid.NewString()
		_, err := uc.Execute(ctx, TransferInput{
			SourceWalletID:      source.ID,
			DestinationWalletID: uuid.NewString(),
			Amount:              decimal.NewFromInt(1),
			CorrelationID:       correlationID,
		})
		assert.ErrorIs(t, err, domain.ErrWalletNotFound)

		rows, err := f.store.Ledger().GetByCorrelationID(ctx, correlationID)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestCreateTransferQueueFailure(t *testing.T) {
	ctx := context.Background()
	f := newOperationFixture()
	source := f.newWallet(t, decimal.NewFromInt(100))
	destination := f.newWallet(t, decimal.Zero)
	uc := NewCreateTransfer(f.store.Wallets(), f.store.Ledger(), f.store.Uow(), f.guard, f.queue)

	f.queue.FailWith(errors.New("broker unreachable"))

	correlationID := uuid.NewString()
	_, err := uc.Execute(ctx, TransferInput{
		SourceWalletID:      source.ID,
		DestinationWalletID: destination.ID,
		Amount:              decimal.NewFromInt(10),
		CorrelationID:       correlationID,
	})
	assert.ErrorIs(t, err, domain.ErrQueueDispatch)

	// Both rows stay PENDING for the sweeper.
	rows, err := f.store.Ledger().GetByCorrelationID(ctx, correlationID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, domain.StatusPending, row.Status)
	}
}
