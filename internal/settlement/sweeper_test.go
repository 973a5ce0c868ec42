package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/infra/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeperRepublishesStalePending(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture()
	queue := memory.NewQueue()

	wallet := f.newWallet(t, decimal.NewFromInt(100))
	other := f.newWallet(t, decimal.Zero)

	deposit := f.pendingDeposit(t, wallet.ID, decimal.NewFromInt(5))
	withdrawal := f.pendingWithdrawal(t, wallet.ID, decimal.NewFromInt(2))
	outRow, _ := f.pendingTransfer(t, wallet.ID, other.ID, decimal.NewFromInt(1))

	// A settled row must never be swept again.
	settled := f.pendingDeposit(t, wallet.ID, decimal.NewFromInt(9))
	require.NoError(t, f.proc.Handle(ctx, NewDepositJob(settled)))

	time.Sleep(5 * time.Millisecond)

	sweeper := NewSweeper(f.store.Ledger(), queue, SweeperOptions{MinAge: time.Nanosecond}, zerolog.Nop())
	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)

	// One job per settlement unit: the TRANSFER_IN row rides along with its
	// TRANSFER_OUT side and gets no job of its own.
	assert.Equal(t, 3, n)

	jobs := queue.Jobs()
	require.Len(t, jobs, 3)
	byKind := map[string]Job{}
	for _, j := range jobs {
		job := j.Body.(Job)
		byKind[job.Kind] = job
	}
	assert.Equal(t, deposit.OperationID, byKind[JobKindDeposit].OperationID)
	assert.Equal(t, withdrawal.OperationID, byKind[JobKindWithdrawal].OperationID)
	require.NotNil(t, outRow.CorrelationID)
	assert.Equal(t, *outRow.CorrelationID, byKind[JobKindTransfer].CorrelationID)
}

func TestSweeperSkipsFreshRows(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture()
	queue := memory.NewQueue()

	wallet := f.newWallet(t, decimal.Zero)
	f.pendingDeposit(t, wallet.ID, decimal.NewFromInt(5))

	sweeper := NewSweeper(f.store.Ledger(), queue, SweeperOptions{MinAge: time.Hour}, zerolog.Nop())
	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, queue.Jobs())
}

func TestJobForTransaction(t *testing.T) {
	out, in := domain.NewTransferPair("a", "b", decimal.NewFromInt(1), "corr", nil, nil)

	job, ok := JobForTransaction(out)
	require.True(t, ok)
	assert.Equal(t, JobKindTransfer, job.Kind)
	assert.Equal(t, RoutingKeyTransfer, job.RoutingKey())
	assert.Equal(t, "a", job.SourceWalletID)
	assert.Equal(t, "b", job.DestinationWalletID)

	_, ok = JobForTransaction(in)
	assert.False(t, ok)
}
