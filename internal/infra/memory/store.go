// Package memory provides in-memory implementations of the gateway
// contracts: store, unit of work, balance cache, and job publisher. The
// semantics mirror the postgres/redis/rabbitmq implementations closely
// enough that the usecases and the settlement processor can be exercised
// without infrastructure, including real compare-and-swap behavior on the
// wallet version.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/gateway"
	"github.com/shopspring/decimal"
)

// Store holds wallets and ledger rows behind one mutex. Individual
// operations are atomic; cross-operation atomicity comes from the undo
// journal the unit of work replays on rollback.
//
// Unlike the postgres store there is no read isolation: writes inside an
// open unit of work are visible to other goroutines before commit, and a
// rollback reverts them in place, re-exposing the prior version number. A
// concurrent reader can therefore observe state that never commits, and a
// read-check-update sequence racing a rollback is not guaranteed the
// postgres semantics. The current tests stay clear of this (transfers
// serialize on their sorted first wallet); tests that need snapshot reads
// across goroutines must provide their own coordination.
type Store struct {
	mu       sync.Mutex
	wallets  map[string]*domain.Wallet
	byUser   map[string]string
	ledger   map[string]*domain.Transaction // keyed by operation id
	inserted []string                       // operation ids in insertion order
}

func NewStore() *Store {
	return &Store{
		wallets: make(map[string]*domain.Wallet),
		byUser:  make(map[string]string),
		ledger:  make(map[string]*domain.Transaction),
	}
}

func (s *Store) Wallets() gateway.WalletRepository { return &walletRepo{s: s} }

func (s *Store) Ledger() gateway.LedgerRepository { return &ledgerRepo{s: s} }

func (s *Store) Uow() gateway.TransactionManager { return &uow{s: s} }

// memTx is the in-memory transaction handle: a journal of undo closures,
// replayed in reverse when the unit of work fails.
type memTx struct {
	s    *Store
	mu   sync.Mutex
	undo []func()
}

func (t *memTx) record(fn func()) {
	t.mu.Lock()
	t.undo = append(t.undo, fn)
	t.mu.Unlock()
}

func (t *memTx) rollback() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

type uow struct {
	s *Store
}

func (u *uow) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := &memTx{s: u.s}
	ctxWithTx := context.WithValue(ctx, gateway.TransactionKey, tx)
	if err := fn(ctxWithTx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type walletRepo struct {
	s  *Store
	tx *memTx
}

func (r *walletRepo) WithTx(tx gateway.TransactionObject) gateway.WalletRepository {
	mt, ok := tx.(*memTx)
	if !ok {
		return r
	}
	return &walletRepo{s: r.s, tx: mt}
}

func (r *walletRepo) journal(fn func()) {
	if r.tx != nil {
		r.tx.record(fn)
	}
}

func (r *walletRepo) Create(_ context.Context, wallet *domain.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.byUser[wallet.UserID]; exists {
		return domain.ErrWalletAlreadyExists
	}
	now := time.Now()
	wallet.CreatedAt = now
	wallet.UpdatedAt = now

	stored := cloneWallet(wallet)
	r.s.wallets[wallet.ID] = stored
	r.s.byUser[wallet.UserID] = wallet.ID

	id, userID := wallet.ID, wallet.UserID
	r.journal(func() {
		delete(r.s.wallets, id)
		delete(r.s.byUser, userID)
	})
	return nil
}

func (r *walletRepo) GetByID(_ context.Context, id string) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.wallets[id]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return cloneWallet(w), nil
}

func (r *walletRepo) GetByUserID(_ context.Context, userID string) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.byUser[userID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return cloneWallet(r.s.wallets[id]), nil
}

// ConditionalUpdate applies the delta only when the stored version still
// matches, exactly like the SQL predicate: 0 affected rows on any miss.
func (r *walletRepo) ConditionalUpdate(_ context.Context, id string, expectedVersion int64, delta decimal.Decimal) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.wallets[id]
	if !ok || w.Version != expectedVersion || !w.IsActive {
		return 0, nil
	}
	next := w.Balance.Add(delta)
	if next.IsNegative() {
		return 0, nil
	}

	prevBalance, prevVersion, prevUpdated := w.Balance, w.Version, w.UpdatedAt
	w.Balance = next
	w.Version++
	w.UpdatedAt = time.Now()

	r.journal(func() {
		if cur, ok := r.s.wallets[id]; ok {
			cur.Balance, cur.Version, cur.UpdatedAt = prevBalance, prevVersion, prevUpdated
		}
	})
	return 1, nil
}

func (r *walletRepo) Deactivate(_ context.Context, id string, expectedVersion int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.wallets[id]
	if !ok || w.Version != expectedVersion || !w.IsActive || !w.Balance.IsZero() {
		return 0, nil
	}

	prevVersion, prevUpdated := w.Version, w.UpdatedAt
	w.IsActive = false
	w.Version++
	w.UpdatedAt = time.Now()

	r.journal(func() {
		if cur, ok := r.s.wallets[id]; ok {
			cur.IsActive = true
			cur.Version, cur.UpdatedAt = prevVersion, prevUpdated
		}
	})
	return 1, nil
}

type ledgerRepo struct {
	s  *Store
	tx *memTx
}

func (r *ledgerRepo) WithTx(tx gateway.TransactionObject) gateway.LedgerRepository {
	mt, ok := tx.(*memTx)
	if !ok {
		return r
	}
	return &ledgerRepo{s: r.s, tx: mt}
}

func (r *ledgerRepo) journal(fn func()) {
	if r.tx != nil {
		r.tx.record(fn)
	}
}

func (r *ledgerRepo) CreateBatch(_ context.Context, rows []*domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, row := range rows {
		if _, exists := r.s.ledger[row.OperationID]; exists {
			return domain.ErrDuplicateOperation
		}
	}

	now := time.Now()
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		row.CreatedAt = now
		row.UpdatedAt = now
		r.s.ledger[row.OperationID] = cloneTransaction(row)
		r.s.inserted = append(r.s.inserted, row.OperationID)
		ids = append(ids, row.OperationID)
	}

	r.journal(func() {
		removed := make(map[string]bool, len(ids))
		for _, id := range ids {
			delete(r.s.ledger, id)
			removed[id] = true
		}
		kept := r.s.inserted[:0]
		for _, id := range r.s.inserted {
			if !removed[id] {
				kept = append(kept, id)
			}
		}
		r.s.inserted = kept
	})
	return nil
}

func (r *ledgerRepo) GetByOperationID(_ context.Context, operationID string) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.ledger[operationID]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return cloneTransaction(row), nil
}

func (r *ledgerRepo) GetByCorrelationID(_ context.Context, correlationID string) ([]*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Transaction
	for _, id := range r.s.inserted {
		row := r.s.ledger[id]
		if row != nil && row.CorrelationID != nil && *row.CorrelationID == correlationID {
			out = append(out, cloneTransaction(row))
		}
	}
	// Same deterministic order as the SQL implementation.
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

func (r *ledgerRepo) UpdateStatusByOperationID(_ context.Context, operationID string, status domain.TransactionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.updateStatusLocked(func(row *domain.Transaction) bool {
		return row.OperationID == operationID
	}, status)
	return nil
}

func (r *ledgerRepo) UpdateStatusByCorrelationID(_ context.Context, correlationID string, status domain.TransactionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.updateStatusLocked(func(row *domain.Transaction) bool {
		return row.CorrelationID != nil && *row.CorrelationID == correlationID
	}, status)
	return nil
}

func (r *ledgerRepo) updateStatusLocked(match func(*domain.Transaction) bool, status domain.TransactionStatus) {
	for _, row := range r.s.ledger {
		if !match(row) || row.Status != domain.StatusPending {
			continue
		}
		prev, prevUpdated, id := row.Status, row.UpdatedAt, row.OperationID
		row.Status = status
		row.UpdatedAt = time.Now()
		r.journal(func() {
			if cur, ok := r.s.ledger[id]; ok {
				cur.Status, cur.UpdatedAt = prev, prevUpdated
			}
		})
	}
}

func (r *ledgerRepo) ListByWallet(_ context.Context, walletID string, limit, offset int) ([]*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Transaction
	// Newest first: walk the insertion order backwards.
	for i := len(r.s.inserted) - 1; i >= 0; i-- {
		row := r.s.ledger[r.s.inserted[i]]
		if row == nil || row.WalletID != walletID {
			continue
		}
		out = append(out, cloneTransaction(row))
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ledgerRepo) ListStalePending(_ context.Context, olderThan time.Time, limit int) ([]*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Transaction
	for _, id := range r.s.inserted {
		row := r.s.ledger[id]
		if row == nil || row.Status != domain.StatusPending || !row.CreatedAt.Before(olderThan) {
			continue
		}
		out = append(out, cloneTransaction(row))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func cloneWallet(w *domain.Wallet) *domain.Wallet {
	c := *w
	return &c
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	if t.CorrelationID != nil {
		v := *t.CorrelationID
		c.CorrelationID = &v
	}
	if t.CounterpartyWalletID != nil {
		v := *t.CounterpartyWalletID
		c.CounterpartyWalletID = &v
	}
	if t.Description != nil {
		v := *t.Description
		c.Description = &v
	}
	return &c
}
