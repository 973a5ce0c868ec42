package gateway

import "context"

// TransactionObject is the opaque handle of an open store transaction. The
// usecases and the settlement processor pass it around without knowing
// whether it is a pgx.Tx or an in-memory journal.
type TransactionObject interface{}

// TransactionManager runs fn inside one atomic unit of work: commit on nil,
// rollback on error. The open transaction handle is injected into the
// context under TransactionKey so repositories can bind to it with WithTx.
type TransactionManager interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// TransactionKeyType keeps the context key collision-free.
type TransactionKeyType string

const TransactionKey TransactionKeyType = "transaction"
