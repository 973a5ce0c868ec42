package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/gateway"
)

// IdempotencyGuard deduplicates retried operation requests against the ledger
// itself: an operation id (or, for transfers, a correlation id) that already
// has rows short-circuits the request before any side effect: no new rows,
// no enqueue. The ledger's uniqueness constraints back the check, so even a
// race between two identical requests resolves to a single applied operation.
type IdempotencyGuard struct {
	ledger gateway.LedgerRepository
}

func NewIdempotencyGuard(ledger gateway.LedgerRepository) *IdempotencyGuard {
	return &IdempotencyGuard{ledger: ledger}
}

// FindByOperationID returns the existing row for the key, or nil when the
// operation has never been seen.
func (g *IdempotencyGuard) FindByOperationID(ctx context.Context, operationID string) (*domain.Transaction, error) {
	row, err := g.ledger.GetByOperationID(ctx, operationID)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	return row, nil
}

// FindByCorrelationID returns the existing transfer pair for the key, or nil.
// Any pre-existing row for the correlation id short-circuits the whole
// transfer; the check never matches on the individual row ids.
func (g *IdempotencyGuard) FindByCorrelationID(ctx context.Context, correlationID string) ([]*domain.Transaction, error) {
	rows, err := g.ledger.GetByCorrelationID(ctx, correlationID)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows, nil
}
