package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the versioned balance record for one user. A user holds at most
// one wallet, and the balance never goes below zero.
//
// Version advances by exactly 1 on every committed mutation. It is the
// predicate of the conditional update issued by the settlement processor, so
// concurrent mutations to the same wallet serialize at commit time.
type Wallet struct {
	ID        string
	UserID    string
	Balance   decimal.Decimal
	IsActive  bool
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSufficientFunds reports whether the wallet can cover a debit of amount.
func (w *Wallet) HasSufficientFunds(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}

// CanDeactivate reports whether the wallet may be soft-deleted. Deactivation
// is only legal on an empty, still-active wallet, and it is terminal.
func (w *Wallet) CanDeactivate() bool {
	return w.IsActive && w.Balance.IsZero()
}
