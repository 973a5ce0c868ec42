package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/gateway"
	"github.com/shopspring/decimal"
)

// dbtx is the subset of pgxpool.Pool and pgx.Tx the repositories need, so
// the same code runs inside or outside a unit of work.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WalletRepository implements gateway.WalletRepository on postgres. Balances
// travel as text so numeric(20,8) round-trips through shopspring decimals
// without touching binary floats.
type WalletRepository struct {
	db  dbtx
	obs gateway.StoreObserver
}

func NewWalletRepository(pool *pgxpool.Pool, obs gateway.StoreObserver) *WalletRepository {
	if obs == nil {
		obs = gateway.NopStoreObserver{}
	}
	return &WalletRepository{db: pool, obs: obs}
}

func (r *WalletRepository) WithTx(tx gateway.TransactionObject) gateway.WalletRepository {
	pgTx, ok := tx.(pgx.Tx)
	if !ok {
		return r
	}
	return &WalletRepository{db: pgTx, obs: r.obs}
}

func (r *WalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	const op = "wallets.create"
	r.obs.OnQueryStart(ctx, op)

	err := r.db.QueryRow(ctx, `
		INSERT INTO wallets (id, user_id, balance, is_active, version)
		VALUES ($1, $2, $3::numeric, $4, $5)
		RETURNING created_at, updated_at`,
		wallet.ID, wallet.UserID, wallet.Balance.String(), wallet.IsActive, wallet.Version,
	).Scan(&wallet.CreatedAt, &wallet.UpdatedAt)
	if err != nil {
		r.obs.OnQueryError(ctx, op, err)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrWalletAlreadyExists
		}
		return fmt.Errorf("create wallet: %w", err)
	}
	return nil
}

func (r *WalletRepository) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	return r.getBy(ctx, "wallets.get_by_id", "id", id)
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	return r.getBy(ctx, "wallets.get_by_user", "user_id", userID)
}

func (r *WalletRepository) getBy(ctx context.Context, op, column, value string) (*domain.Wallet, error) {
	r.obs.OnQueryStart(ctx, op)

	query := fmt.Sprintf(`
		SELECT id, user_id, balance::text, is_active, version, created_at, updated_at
		FROM wallets WHERE %s = $1`, column)

	var (
		w          domain.Wallet
		balanceStr string
	)
	err := r.db.QueryRow(ctx, query, value).Scan(
		&w.ID, &w.UserID, &balanceStr, &w.IsActive, &w.Version, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		r.obs.OnQueryError(ctx, op, err)
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	w.Balance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balanceStr, err)
	}
	return &w, nil
}

// ConditionalUpdate is the optimistic-concurrency primitive: the balance
// delta lands only if nobody advanced the version since it was read. The
// balance >= 0 and is_active checks ride in the predicate as a second line
// of defense behind the processor's own funds and active checks.
func (r *WalletRepository) ConditionalUpdate(ctx context.Context, id string, expectedVersion int64, delta decimal.Decimal) (int64, error) {
	const op = "wallets.conditional_update"
	r.obs.OnQueryStart(ctx, op)

	tag, err := r.db.Exec(ctx, `
		UPDATE wallets
		SET balance = balance + $1::numeric, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3 AND is_active AND balance + $1::numeric >= 0`,
		delta.String(), id, expectedVersion,
	)
	if err != nil {
		r.obs.OnQueryError(ctx, op, err)
		return 0, fmt.Errorf("conditional update: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *WalletRepository) Deactivate(ctx context.Context, id string, expectedVersion int64) (int64, error) {
	const op = "wallets.deactivate"
	r.obs.OnQueryStart(ctx, op)

	tag, err := r.db.Exec(ctx, `
		UPDATE wallets
		SET is_active = false, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2 AND is_active AND balance = 0`,
		id, expectedVersion,
	)
	if err != nil {
		r.obs.OnQueryError(ctx, op, err)
		return 0, fmt.Errorf("deactivate wallet: %w", err)
	}
	return tag.RowsAffected(), nil
}
