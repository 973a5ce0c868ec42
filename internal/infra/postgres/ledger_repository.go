package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/gateway"
	"github.com/shopspring/decimal"
)

const ledgerColumns = `id, operation_id, correlation_id, wallet_id, counterparty_wallet_id,
	amount::text, kind, status, description, metadata, created_at, updated_at`

// LedgerRepository implements gateway.LedgerRepository on postgres. The
// unique index on operation_id is the hard backstop behind the idempotency
// guard's lookup.
type LedgerRepository struct {
	db  dbtx
	obs gateway.StoreObserver
}

func NewLedgerRepository(pool *pgxpool.Pool, obs gateway.StoreObserver) *LedgerRepository {
	if obs == nil {
		obs = gateway.NopStoreObserver{}
	}
	return &LedgerRepository{db: pool, obs: obs}
}

func (r *LedgerRepository) WithTx(tx gateway.TransactionObject) gateway.LedgerRepository {
	pgTx, ok := tx.(pgx.Tx)
	if !ok {
		return r
	}
	return &LedgerRepository{db: pgTx, obs: r.obs}
}

// CreateBatch inserts 1 or 2 rows in a single statement, so a transfer pair
// is all-or-nothing even outside an explicit unit of work.
func (r *LedgerRepository) CreateBatch(ctx context.Context, rows []*domain.Transaction) error {
	const op = "ledger.create_batch"
	if len(rows) == 0 || len(rows) > 2 {
		return fmt.Errorf("create batch: expected 1 or 2 rows, got %d", len(rows))
	}
	r.obs.OnQueryStart(ctx, op)

	values := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*10)
	for i, row := range rows {
		base := i * 10
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d::numeric, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10,
		))

		var metadata []byte
		if row.Metadata != nil {
			b, err := json.Marshal(row.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata: %w", err)
			}
			metadata = b
		}
		args = append(args,
			row.ID, row.OperationID, row.CorrelationID, row.WalletID, row.CounterpartyWalletID,
			row.Amount.String(), string(row.Kind), string(row.Status), row.Description, metadata,
		)
	}

	query := `
		INSERT INTO transactions
			(id, operation_id, correlation_id, wallet_id, counterparty_wallet_id,
			 amount, kind, status, description, metadata)
		VALUES ` + strings.Join(values, ", ")

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		r.obs.OnQueryError(ctx, op, err)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateOperation
		}
		return fmt.Errorf("create ledger rows: %w", err)
	}

	now := time.Now()
	for _, row := range rows {
		row.CreatedAt = now
		row.UpdatedAt = now
	}
	return nil
}

func (r *LedgerRepository) GetByOperationID(ctx context.Context, operationID string) (*domain.Transaction, error) {
	const op = "ledger.get_by_operation"
	r.obs.OnQueryStart(ctx, op)

	row := r.db.QueryRow(ctx,
		`SELECT `+ledgerColumns+` FROM transactions WHERE operation_id = $1`,
		operationID,
	)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		r.obs.OnQueryError(ctx, op, err)
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *LedgerRepository) GetByCorrelationID(ctx context.Context, correlationID string) ([]*domain.Transaction, error) {
	const op = "ledger.get_by_correlation"
	r.obs.OnQueryStart(ctx, op)

	// TRANSFER_IN sorts before TRANSFER_OUT; the fixed order keeps callers
	// deterministic.
	rows, err := r.db.Query(ctx,
		`SELECT `+ledgerColumns+` FROM transactions WHERE correlation_id = $1 ORDER BY kind`,
		correlationID,
	)
	if err != nil {
		r.obs.OnQueryError(ctx, op, err)
		return nil, fmt.Errorf("get transfer pair: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *LedgerRepository) UpdateStatusByOperationID(ctx context.Context, operationID string, status domain.TransactionStatus) error {
	const op = "ledger.update_status_by_operation"
	r.obs.OnQueryStart(ctx, op)

	// Only PENDING rows move; a terminal row never transitions twice.
	_, err := r.db.Exec(ctx, `
		UPDATE transactions SET status = $1, updated_at = now()
		WHERE operation_id = $2 AND status = 'PENDING'`,
		string(status), operationID,
	)
	if err != nil {
		r.obs.OnQueryError(ctx, op, err)
		return fmt.Errorf("update transaction status: %w", err)
	}
	return nil
}

func (r *LedgerRepository) UpdateStatusByCorrelationID(ctx context.Context, correlationID string, status domain.TransactionStatus) error {
	const op = "ledger.update_status_by_correlation"
	r.obs.OnQueryStart(ctx, op)

	_, err := r.db.Exec(ctx, `
		UPDATE transactions SET status = $1, updated_at = now()
		WHERE correlation_id = $2 AND status = 'PENDING'`,
		string(status), correlationID,
	)
	if err != nil {
		r.obs.OnQueryError(ctx, op, err)
		return fmt.Errorf("update transfer pair status: %w", err)
	}
	return nil
}

func (r *LedgerRepository) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]*domain.Transaction, error) {
	const op = "ledger.list_by_wallet"
	r.obs.OnQueryStart(ctx, op)

	rows, err := r.db.Query(ctx,
		`SELECT `+ledgerColumns+` FROM transactions
		 WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		walletID, limit, offset,
	)
	if err != nil {
		r.obs.OnQueryError(ctx, op, err)
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *LedgerRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Transaction, error) {
	const op = "ledger.list_stale_pending"
	r.obs.OnQueryStart(ctx, op)

	rows, err := r.db.Query(ctx,
		`SELECT `+ledgerColumns+` FROM transactions
		 WHERE status = 'PENDING' AND created_at < $1
		 ORDER BY created_at LIMIT $2`,
		olderThan, limit,
	)
	if err != nil {
		r.obs.OnQueryError(ctx, op, err)
		return nil, fmt.Errorf("list stale pending: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx        domain.Transaction
		amountStr string
		kind      string
		status    string
		metadata  []byte
	)
	err := row.Scan(
		&tx.ID, &tx.OperationID, &tx.CorrelationID, &tx.WalletID, &tx.CounterpartyWalletID,
		&amountStr, &kind, &status, &tx.Description, &metadata, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amountStr, err)
	}
	tx.Kind = domain.TransactionKind(kind)
	tx.Status = domain.TransactionStatus(status)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &tx, nil
}

func collectTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
