package settlement

import (
	"context"
	"time"

	"github.com/ledgerkit/walletcore/internal/gateway"
	"github.com/rs/zerolog"
)

// Sweeper re-publishes settlement jobs for ledger rows stuck in PENDING, the
// reconciliation path for jobs whose queue delivery attempts were exhausted
// (or never dispatched at all). Re-publication is harmless: a row that was
// settled in the meantime is terminal and the processor skips it.
type Sweeper struct {
	ledger    gateway.LedgerRepository
	publisher gateway.JobPublisher
	interval  time.Duration
	minAge    time.Duration
	batchSize int
	logger    zerolog.Logger
}

type SweeperOptions struct {
	Interval  time.Duration // default 1m
	MinAge    time.Duration // default 5m
	BatchSize int           // default 100
}

func NewSweeper(ledger gateway.LedgerRepository, publisher gateway.JobPublisher, opts SweeperOptions, logger zerolog.Logger) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.MinAge <= 0 {
		opts.MinAge = 5 * time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &Sweeper{
		ledger:    ledger,
		publisher: publisher,
		interval:  opts.Interval,
		minAge:    opts.MinAge,
		batchSize: opts.BatchSize,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("pending sweep failed")
			} else if n > 0 {
				s.logger.Info().Int("republished", n).Msg("re-published stale pending settlements")
			}
		}
	}
}

// Sweep publishes one batch of stale PENDING rows and returns how many jobs
// went out.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.minAge)
	rows, err := s.ledger.ListStalePending(ctx, cutoff, s.batchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, row := range rows {
		job, ok := JobForTransaction(row)
		if !ok {
			// TRANSFER_IN rows ride along with their TRANSFER_OUT side.
			continue
		}
		if err := s.publisher.Publish(ctx, job.RoutingKey(), job); err != nil {
			s.logger.Error().Err(err).Str("operation_id", row.OperationID).Msg("sweep publish failed")
			continue
		}
		published++
	}
	return published, nil
}
