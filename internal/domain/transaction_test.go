package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransferPair(t *testing.T) {
	out, in := NewTransferPair("source", "destination", decimal.NewFromInt(10), "corr-1", nil, nil)

	assert.Equal(t, KindTransferOut, out.Kind)
	assert.Equal(t, KindTransferIn, in.Kind)
	assert.Equal(t, StatusPending, out.Status)
	assert.Equal(t, StatusPending, in.Status)
	assert.Equal(t, "source", out.WalletID)
	assert.Equal(t, "destination", in.WalletID)

	require.NotNil(t, out.CounterpartyWalletID)
	require.NotNil(t, in.CounterpartyWalletID)
	assert.Equal(t, "destination", *out.CounterpartyWalletID)
	assert.Equal(t, "source", *in.CounterpartyWalletID)

	require.NotNil(t, out.CorrelationID)
	require.NotNil(t, in.CorrelationID)
	assert.Equal(t, *out.CorrelationID, *in.CorrelationID)

	assert.NotEqual(t, out.OperationID, in.OperationID)
	assert.True(t, out.Amount.Equal(in.Amount))
}

func TestTransactionIsTerminal(t *testing.T) {
	row := NewDeposit("w", decimal.NewFromInt(1), "op", nil, nil)
	assert.False(t, row.IsTerminal())

	for _, status := range []TransactionStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		row.Status = status
		assert.True(t, row.IsTerminal(), string(status))
	}
}

func TestWalletFunds(t *testing.T) {
	w := &Wallet{Balance: decimal.NewFromInt(10), IsActive: true}

	assert.True(t, w.HasSufficientFunds(decimal.NewFromInt(10)))
	assert.False(t, w.HasSufficientFunds(decimal.NewFromInt(11)))
	assert.False(t, w.CanDeactivate())

	w.Balance = decimal.Zero
	assert.True(t, w.CanDeactivate())

	w.IsActive = false
	assert.False(t, w.CanDeactivate())
}

func TestErrorCategories(t *testing.T) {
	assert.True(t, IsTransient(ErrConcurrencyConflict))
	assert.False(t, IsTransient(ErrInsufficientFunds))

	assert.True(t, IsTerminal(ErrInsufficientFunds))
	assert.True(t, IsTerminal(ErrWalletNotFound))
	assert.False(t, IsTerminal(ErrConcurrencyConflict))
}
