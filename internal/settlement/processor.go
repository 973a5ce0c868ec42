package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/gateway"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Balance cache TTL after a settlement refresh. Matches the read path.
const BalanceCacheTTL = 300 * time.Second

// Processor-side retry bounds for optimistic-concurrency conflicts:
// 3 attempts total, delays of ~100ms, 200ms, 400ms between them.
const (
	maxAttempts    = 3
	baseRetryDelay = 100 * time.Millisecond
)

// AuditEntry is the record of one settlement outcome.
type AuditEntry struct {
	OperationID   string
	CorrelationID string
	WalletID      string
	Kind          string
	Status        string
	Amount        string
	Error         string
}

// AuditRecorder persists settlement outcomes. Optional; failures are logged,
// never propagated.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// Processor applies the balance mutation a PENDING ledger row describes,
// under optimistic concurrency control.
//
// Every path re-reads wallet state from the store inside the unit of work,
// never from the cache, and commits through a version-predicated update.
// Re-delivery of an already-settled row is a no-op, which is what keeps the
// at-least-once queue honest.
type Processor struct {
	wallets gateway.WalletRepository
	ledger  gateway.LedgerRepository
	uow     gateway.TransactionManager
	cache   gateway.BalanceCache
	audit   AuditRecorder
	logger  zerolog.Logger
}

func NewProcessor(
	wallets gateway.WalletRepository,
	ledger gateway.LedgerRepository,
	uow gateway.TransactionManager,
	cache gateway.BalanceCache,
	audit AuditRecorder,
	logger zerolog.Logger,
) *Processor {
	return &Processor{
		wallets: wallets,
		ledger:  ledger,
		uow:     uow,
		cache:   cache,
		audit:   audit,
		logger:  logger,
	}
}

// Handle settles one job. The returned error, if any, has already been
// reflected on the ledger row(s) where possible; the queue consumer decides
// whether the category is worth a redelivery.
func (p *Processor) Handle(ctx context.Context, job Job) error {
	switch job.Kind {
	case JobKindDeposit, JobKindWithdrawal:
		return p.settleSingle(ctx, job)
	case JobKindTransfer:
		return p.settleTransfer(ctx, job)
	default:
		return fmt.Errorf("unknown settlement job kind %q", job.Kind)
	}
}

// settleSingle applies a deposit or withdrawal to one wallet.
func (p *Processor) settleSingle(ctx context.Context, job Job) error {
	var (
		settled    bool
		walletID   string
		newBalance decimal.Decimal
	)

	err := p.withRetry(ctx, func() error {
		settled = false
		return p.uow.Run(ctx, func(txCtx context.Context) error {
			txObj := txCtx.Value(gateway.TransactionKey)
			ledgerTx := p.ledger.WithTx(txObj)
			walletsTx := p.wallets.WithTx(txObj)

			row, err := ledgerTx.GetByOperationID(txCtx, job.OperationID)
			if err != nil {
				return err
			}
			// Redelivered job for a row that already reached a terminal
			// state: nothing left to do.
			if row.IsTerminal() {
				return nil
			}

			wallet, err := walletsTx.GetByID(txCtx, row.WalletID)
			if err != nil {
				return err
			}
			// Deactivation is terminal: a wallet closed while the job was
			// queued accepts no mutation, deposits included.
			if !wallet.IsActive {
				return domain.ErrWalletInactive
			}

			delta := row.Amount
			if row.Kind == domain.KindWithdrawal {
				if !wallet.HasSufficientFunds(row.Amount) {
					return domain.ErrInsufficientFunds
				}
				delta = row.Amount.Neg()
			}

			affected, err := walletsTx.ConditionalUpdate(txCtx, wallet.ID, wallet.Version, delta)
			if err != nil {
				return err
			}
			if affected == 0 {
				return domain.ErrConcurrencyConflict
			}

			if err := ledgerTx.UpdateStatusByOperationID(txCtx, row.OperationID, domain.StatusCompleted); err != nil {
				return err
			}

			settled = true
			walletID = wallet.ID
			newBalance = wallet.Balance.Add(delta)
			return nil
		})
	})

	if err != nil {
		// A shutdown mid-retry is not a verdict on the job; the row stays
		// PENDING for redelivery or the sweeper.
		if errors.Is(err, context.Canceled) {
			return err
		}
		p.markFailed(ctx, job, err)
		return err
	}

	if settled {
		p.refreshCache(ctx, walletID, newBalance)
		p.recordAudit(ctx, job, string(domain.StatusCompleted), "")
		p.logger.Info().
			Str("operation_id", job.OperationID).
			Str("kind", job.Kind).
			Str("wallet_id", walletID).
			Msg("settlement committed")
	}
	return nil
}

// settleTransfer applies both sides of a transfer in one unit of work. The
// two wallets are read and updated in sorted-id order so two opposite
// transfers between the same pair can never wait on each other in a cycle.
func (p *Processor) settleTransfer(ctx context.Context, job Job) error {
	var (
		settled  bool
		balances map[string]decimal.Decimal
	)

	err := p.withRetry(ctx, func() error {
		settled = false
		return p.uow.Run(ctx, func(txCtx context.Context) error {
			txObj := txCtx.Value(gateway.TransactionKey)
			ledgerTx := p.ledger.WithTx(txObj)
			walletsTx := p.wallets.WithTx(txObj)

			rows, err := ledgerTx.GetByCorrelationID(txCtx, job.CorrelationID)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return domain.ErrTransactionNotFound
			}
			if rows[0].IsTerminal() {
				return nil
			}

			var out *domain.Transaction
			for _, row := range rows {
				if row.Kind == domain.KindTransferOut {
					out = row
				}
			}
			if out == nil || out.CounterpartyWalletID == nil {
				return fmt.Errorf("transfer %s: malformed pair", job.CorrelationID)
			}
			sourceID, destID := out.WalletID, *out.CounterpartyWalletID

			// Fixed acquisition order: always the smaller wallet id first,
			// regardless of which side is the source.
			ids := []string{sourceID, destID}
			sort.Strings(ids)

			wallets := make(map[string]*domain.Wallet, 2)
			for _, id := range ids {
				w, err := walletsTx.GetByID(txCtx, id)
				if err != nil {
					return err
				}
				// Either side closed while the job was queued fails the
				// whole pair.
				if !w.IsActive {
					return domain.ErrWalletInactive
				}
				wallets[id] = w
			}

			source := wallets[sourceID]
			if !source.HasSufficientFunds(out.Amount) {
				return domain.ErrInsufficientFunds
			}

			deltas := map[string]decimal.Decimal{
				sourceID: out.Amount.Neg(),
				destID:   out.Amount,
			}
			for _, id := range ids {
				w := wallets[id]
				affected, err := walletsTx.ConditionalUpdate(txCtx, id, w.Version, deltas[id])
				if err != nil {
					return err
				}
				// Either predicate missing aborts the whole unit: the pair
				// retries (or fails) together, never one side alone.
				if affected == 0 {
					return domain.ErrConcurrencyConflict
				}
			}

			if err := ledgerTx.UpdateStatusByCorrelationID(txCtx, job.CorrelationID, domain.StatusCompleted); err != nil {
				return err
			}

			settled = true
			balances = map[string]decimal.Decimal{
				sourceID: source.Balance.Add(deltas[sourceID]),
				destID:   wallets[destID].Balance.Add(deltas[destID]),
			}
			return nil
		})
	})

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		p.markFailed(ctx, job, err)
		return err
	}

	if settled {
		for id, balance := range balances {
			p.refreshCache(ctx, id, balance)
		}
		p.recordAudit(ctx, job, string(domain.StatusCompleted), "")
		p.logger.Info().
			Str("correlation_id", job.CorrelationID).
			Str("source", job.SourceWalletID).
			Str("destination", job.DestinationWalletID).
			Msg("transfer settled")
	}
	return nil
}

// withRetry re-runs fn on transient failures (version-predicate misses,
// serialization aborts, unit-of-work timeouts), re-reading fresh state each
// time. Business verdicts pass through on the first occurrence.
func (p *Processor) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay << (attempt - 1)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			p.logger.Debug().Int("attempt", attempt+1).Dur("delay", delay).Msg("retrying settlement after conflict")
		}

		err = fn()
		if err == nil {
			return nil
		}
		if !domain.IsTransient(err) {
			return err
		}
	}
	return err
}

// markFailed moves the ledger row(s) of a job to FAILED. Best effort: when
// the store itself is unreachable the row stays PENDING and the sweeper or a
// redelivery picks it up later.
func (p *Processor) markFailed(ctx context.Context, job Job, cause error) {
	var err error
	if job.Kind == JobKindTransfer {
		err = p.ledger.UpdateStatusByCorrelationID(ctx, job.CorrelationID, domain.StatusFailed)
	} else {
		err = p.ledger.UpdateStatusByOperationID(ctx, job.OperationID, domain.StatusFailed)
	}
	if err != nil {
		p.logger.Error().Err(err).
			Str("operation_id", job.OperationID).
			Str("correlation_id", job.CorrelationID).
			Msg("could not mark ledger row failed, leaving it pending")
		return
	}
	p.recordAudit(ctx, job, string(domain.StatusFailed), cause.Error())
	p.logger.Warn().Err(cause).
		Str("operation_id", job.OperationID).
		Str("correlation_id", job.CorrelationID).
		Str("kind", job.Kind).
		Msg("settlement failed")
}

func (p *Processor) refreshCache(ctx context.Context, walletID string, balance decimal.Decimal) {
	if err := p.cache.Set(ctx, walletID, balance, BalanceCacheTTL); err != nil {
		// The cache is expendable; the next read repopulates it.
		p.logger.Warn().Err(err).Str("wallet_id", walletID).Msg("balance cache refresh failed")
	}
}

func (p *Processor) recordAudit(ctx context.Context, job Job, status, cause string) {
	if p.audit == nil {
		return
	}
	entry := AuditEntry{
		OperationID:   job.OperationID,
		CorrelationID: job.CorrelationID,
		WalletID:      job.WalletID,
		Kind:          job.Kind,
		Status:        status,
		Amount:        job.Amount,
		Error:         cause,
	}
	if entry.WalletID == "" {
		entry.WalletID = job.SourceWalletID
	}
	if err := p.audit.Record(ctx, entry); err != nil {
		p.logger.Warn().Err(err).Msg("settlement audit write failed")
	}
}
