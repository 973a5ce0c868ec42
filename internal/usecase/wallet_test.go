package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/infra/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWallet(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := NewCreateWallet(store.Wallets())

	userID := uuid.NewString()
	wallet, err := uc.Execute(ctx, CreateWalletInput{UserID: userID, InitialBalance: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.Equal(t, userID, wallet.UserID)
	assert.True(t, wallet.IsActive)
	assert.Equal(t, int64(0), wallet.Version)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(50)))

	t.Run("one wallet per user", func(t *testing.T) {
		_, err := uc.Execute(ctx, CreateWalletInput{UserID: userID})
		assert.ErrorIs(t, err, domain.ErrWalletAlreadyExists)
	})

	t.Run("negative initial balance", func(t *testing.T) {
		_, err := uc.Execute(ctx, CreateWalletInput{
			UserID:         uuid.NewString(),
			InitialBalance: decimal.NewFromInt(-1),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("zero initial balance is fine", func(t *testing.T) {
		w, err := uc.Execute(ctx, CreateWalletInput{UserID: uuid.NewString()})
		require.NoError(t, err)
		assert.True(t, w.Balance.IsZero())
	})
}

func TestGetBalanceReadThrough(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cache := memory.NewCache()

	wallet, err := NewCreateWallet(store.Wallets()).Execute(ctx, CreateWalletInput{
		UserID:         uuid.NewString(),
		InitialBalance: decimal.NewFromInt(75),
	})
	require.NoError(t, err)

	uc := NewGetBalance(store.Wallets(), cache)

	// Miss populates the cache.
	balance, err := uc.Execute(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(75)))

	cached, ok, err := cache.Get(ctx, wallet.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cached.Equal(decimal.NewFromInt(75)))

	// A hit wins over the store, even when the entry is stale.
	require.NoError(t, cache.Set(ctx, wallet.ID, decimal.NewFromInt(999), BalanceCacheTTL))
	balance, err = uc.Execute(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(999)))

	t.Run("unknown wallet", func(t *testing.T) {
		_, err := uc.Execute(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrWalletNotFound)
	})
}

func TestDeactivateWallet(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cache := memory.NewCache()
	create := NewCreateWallet(store.Wallets())
	uc := NewDeactivateWallet(store.Wallets(), cache)

	t.Run("empty wallet deactivates", func(t *testing.T) {
		wallet, err := create.Execute(ctx, CreateWalletInput{UserID: uuid.NewString()})
		require.NoError(t, err)
		require.NoError(t, cache.Set(ctx, wallet.ID, decimal.Zero, BalanceCacheTTL))

		out, err := uc.Execute(ctx, wallet.ID)
		require.NoError(t, err)
		assert.False(t, out.IsActive)
		assert.Equal(t, wallet.Version+1, out.Version)

		stored, err := store.Wallets().GetByID(ctx, wallet.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsActive)

		_, ok, err := cache.Get(ctx, wallet.ID)
		require.NoError(t, err)
		assert.False(t, ok, "cache entry should be evicted")
	})

	t.Run("already deactivated reads as not found", func(t *testing.T) {
		wallet, err := create.Execute(ctx, CreateWalletInput{UserID: uuid.NewString()})
		require.NoError(t, err)
		_, err = uc.Execute(ctx, wallet.ID)
		require.NoError(t, err)

		_, err = uc.Execute(ctx, wallet.ID)
		assert.ErrorIs(t, err, domain.ErrWalletNotFound)
	})

	t.Run("any nonzero balance blocks", func(t *testing.T) {
		dust, err := decimal.NewFromString("0.00000001")
		require.NoError(t, err)
		wallet, err := create.Execute(ctx, CreateWalletInput{
			UserID:         uuid.NewString(),
			InitialBalance: dust,
		})
		require.NoError(t, err)

		_, err = uc.Execute(ctx, wallet.ID)
		assert.ErrorIs(t, err, domain.ErrWalletNotEmpty)

		stored, err := store.Wallets().GetByID(ctx, wallet.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsActive)
	})

	t.Run("unknown wallet", func(t *testing.T) {
		_, err := uc.Execute(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrWalletNotFound)
	})
}
