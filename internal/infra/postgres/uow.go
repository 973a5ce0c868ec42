package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/gateway"
)

// Time bounds of one unit of work: how long we wait for a connection, and
// how long the work itself may run before it counts as a transient failure.
const (
	acquireTimeout = 5 * time.Second
	execTimeout    = 10 * time.Second
)

// Uow implements gateway.TransactionManager on a pgx pool. Read committed is
// enough: the version predicate, not the isolation level, is what serializes
// wallet mutations.
type Uow struct {
	pool *pgxpool.Pool
}

func NewUow(pool *pgxpool.Pool) *Uow {
	return &Uow{pool: pool}
}

// Run executes fn inside a transaction: commit on nil, rollback otherwise.
// The pgx.Tx handle travels in the context under gateway.TransactionKey.
// Serialization and deadlock aborts come back as domain.ErrConcurrencyConflict
// so callers can apply their retry policy.
func (u *Uow) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	beginCtx, cancelBegin := context.WithTimeout(ctx, acquireTimeout)
	defer cancelBegin()

	tx, err := u.pool.BeginTx(beginCtx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	execCtx, cancelExec := context.WithTimeout(ctx, execTimeout)
	defer cancelExec()

	// Rollback after commit is a harmless no-op; this covers early returns
	// and panics.
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	ctxWithTx := context.WithValue(execCtx, gateway.TransactionKey, tx)

	if err := fn(ctxWithTx); err != nil {
		return translateTxError(err)
	}
	if err := tx.Commit(execCtx); err != nil {
		return translateTxError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// translateTxError maps postgres serialization_failure (40001) and
// deadlock_detected (40P01) onto the domain's retryable conflict error.
func translateTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return fmt.Errorf("%w: %v", domain.ErrConcurrencyConflict, err)
		}
	}
	return err
}
