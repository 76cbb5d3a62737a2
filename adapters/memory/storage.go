package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"loyaltykit/core"
)

// Store is a concurrent in-memory Ledger implementation. Appends for one
// account serialize on the account record's mutex, so concurrent awards
// never lose an increment.
type Store struct {
	accounts sync.Map // map[core.AccountID]*accountRecord
}

type accountRecord struct {
	mu      sync.Mutex
	balance int64
	updated time.Time
	txs     []core.Transaction // append-only, creation order
}

func New() *Store { return &Store{} }

func (s *Store) getOrCreate(account core.AccountID) *accountRecord {
	if v, ok := s.accounts.Load(account); ok {
		return v.(*accountRecord)
	}
	rec := &accountRecord{updated: time.Now().UTC()}
	actual, _ := s.accounts.LoadOrStore(account, rec)
	return actual.(*accountRecord)
}

func (s *Store) Append(_ context.Context, account core.AccountID, in core.AppendInput) (core.Transaction, error) {
	rec := s.getOrCreate(account)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	next, err := core.AddSafe(rec.balance, in.Delta)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		ID:           uuid.NewString(),
		Account:      account,
		Action:       in.Action,
		ContentRef:   in.ContentRef,
		Delta:        in.Delta,
		BalanceAfter: next,
		Kind:         in.Kind,
		Reason:       in.Reason,
		Metadata:     in.Metadata,
		CreatedAt:    time.Now().UTC(),
	}
	rec.balance = next
	rec.updated = tx.CreatedAt
	rec.txs = append(rec.txs, tx)
	return tx, nil
}

func (s *Store) Balance(_ context.Context, account core.AccountID) (int64, error) {
	rec := s.getOrCreate(account)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.balance, nil
}

func (s *Store) HasSince(_ context.Context, account core.AccountID, action core.ActionID, ref core.ContentRef, since time.Time) (bool, error) {
	rec := s.getOrCreate(account)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i := len(rec.txs) - 1; i >= 0; i-- {
		tx := rec.txs[i]
		if tx.CreatedAt.Before(since) {
			break
		}
		if tx.Action == action && tx.ContentRef == ref {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CountAction(_ context.Context, account core.AccountID, action core.ActionID) (int64, error) {
	rec := s.getOrCreate(account)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var n int64
	for _, tx := range rec.txs {
		if tx.Action == action {
			n++
		}
	}
	return n, nil
}

func (s *Store) Recent(_ context.Context, account core.AccountID, limit int) ([]core.Transaction, error) {
	rec := s.getOrCreate(account)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if limit <= 0 || limit > len(rec.txs) {
		limit = len(rec.txs)
	}
	out := make([]core.Transaction, 0, limit)
	for i := len(rec.txs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, rec.txs[i])
	}
	return out, nil
}

func (s *Store) TotalEarned(_ context.Context, account core.AccountID) (int64, error) {
	rec := s.getOrCreate(account)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var total int64
	for _, tx := range rec.txs {
		if tx.Delta > 0 {
			total += tx.Delta
		}
	}
	return total, nil
}

// all returns every transaction in creation order; used by ledger audits.
func (s *Store) all(account core.AccountID) []core.Transaction {
	rec := s.getOrCreate(account)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]core.Transaction, len(rec.txs))
	copy(out, rec.txs)
	return out
}

var _ interface {
	Append(context.Context, core.AccountID, core.AppendInput) (core.Transaction, error)
	Balance(context.Context, core.AccountID) (int64, error)
	HasSince(context.Context, core.AccountID, core.ActionID, core.ContentRef, time.Time) (bool, error)
	CountAction(context.Context, core.AccountID, core.ActionID) (int64, error)
	Recent(context.Context, core.AccountID, int) ([]core.Transaction, error)
	TotalEarned(context.Context, core.AccountID) (int64, error)
} = (*Store)(nil)
