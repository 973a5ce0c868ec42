package domain

import (
	"context"
	"errors"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrWalletAlreadyExists = errors.New("user already has a wallet")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrWalletInactive      = errors.New("wallet is deactivated")
	ErrWalletNotEmpty      = errors.New("wallet balance must be zero to deactivate")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrSelfTransfer        = errors.New("source and destination wallets must differ")
	ErrDuplicateOperation  = errors.New("operation id already recorded")
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
	ErrQueueDispatch       = errors.New("failed to dispatch settlement job")
)

// IsTransient reports whether an error is worth another attempt: a
// version-predicate miss, a store serialization/deadlock abort (the postgres
// layer maps those onto ErrConcurrencyConflict), or a unit-of-work timeout.
// Everything else is a firm answer and must not be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) ||
		errors.Is(err, context.DeadlineExceeded)
}

// IsTerminal reports whether the error is a business-rule verdict that no
// amount of redelivery can change.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrWalletNotFound) ||
		errors.Is(err, ErrWalletInactive) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrDuplicateOperation)
}
