package settlement

import (
	"time"

	"github.com/ledgerkit/walletcore/internal/domain"
)

// Routing keys for the settlement exchange, one per settlement unit.
const (
	RoutingKeyDeposit    = "settlement.deposit"
	RoutingKeyWithdrawal = "settlement.withdrawal"
	RoutingKeyTransfer   = "settlement.transfer"
)

// Delivery policy of the queue: up to 3 attempts, exponential backoff
// starting at 2 seconds. Independent from the processor's own retry loop.
const (
	MaxDeliveryAttempts    = 3
	InitialDeliveryBackoff = 2 * time.Second
)

// Job is the wire payload of one settlement unit. It carries the minimum
// needed to replay the mutation: wallet id(s), the amount as a decimal
// string, and the correlating key.
type Job struct {
	Kind                string `json:"kind"` // "deposit" | "withdrawal" | "transfer"
	WalletID            string `json:"wallet_id,omitempty"`
	SourceWalletID      string `json:"source_wallet_id,omitempty"`
	DestinationWalletID string `json:"destination_wallet_id,omitempty"`
	Amount              string `json:"amount"`
	OperationID         string `json:"operation_id,omitempty"`
	CorrelationID       string `json:"correlation_id,omitempty"`
}

const (
	JobKindDeposit    = "deposit"
	JobKindWithdrawal = "withdrawal"
	JobKindTransfer   = "transfer"
)

// RoutingKey maps the job to its exchange routing key.
func (j Job) RoutingKey() string {
	switch j.Kind {
	case JobKindWithdrawal:
		return RoutingKeyWithdrawal
	case JobKindTransfer:
		return RoutingKeyTransfer
	default:
		return RoutingKeyDeposit
	}
}

// NewDepositJob builds the job for a PENDING deposit row.
func NewDepositJob(row *domain.Transaction) Job {
	return Job{
		Kind:        JobKindDeposit,
		WalletID:    row.WalletID,
		Amount:      row.Amount.String(),
		OperationID: row.OperationID,
	}
}

// NewWithdrawalJob builds the job for a PENDING withdrawal row.
func NewWithdrawalJob(row *domain.Transaction) Job {
	return Job{
		Kind:        JobKindWithdrawal,
		WalletID:    row.WalletID,
		Amount:      row.Amount.String(),
		OperationID: row.OperationID,
	}
}

// NewTransferJob builds the job for a transfer pair, from its TRANSFER_OUT
// row. One job settles both rows.
func NewTransferJob(out *domain.Transaction) Job {
	j := Job{
		Kind:           JobKindTransfer,
		SourceWalletID: out.WalletID,
		Amount:         out.Amount.String(),
	}
	if out.CounterpartyWalletID != nil {
		j.DestinationWalletID = *out.CounterpartyWalletID
	}
	if out.CorrelationID != nil {
		j.CorrelationID = *out.CorrelationID
	}
	return j
}

// JobForTransaction rebuilds the settlement job for a stale PENDING row, used
// by the sweeper. The TRANSFER_IN side returns false: the pair is settled by
// one job, published for the TRANSFER_OUT row only.
func JobForTransaction(row *domain.Transaction) (Job, bool) {
	switch row.Kind {
	case domain.KindDeposit:
		return NewDepositJob(row), true
	case domain.KindWithdrawal:
		return NewWithdrawalJob(row), true
	case domain.KindTransferOut:
		return NewTransferJob(row), true
	default:
		return Job{}, false
	}
}
