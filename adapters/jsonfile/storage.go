package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"loyaltykit/core"
)

// Store persists the entire ledger to a single JSON file.
// Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory cache for speed
	data map[core.AccountID]*accountBlob
}

type accountBlob struct {
	Balance      int64              `json:"balance"`
	Updated      time.Time          `json:"updated"`
	Transactions []core.Transaction `json:"transactions"`
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: map[core.AccountID]*accountBlob{}}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var raw map[string]*accountBlob
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		s.data[core.AccountID(k)] = v
	}
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	raw := make(map[string]*accountBlob, len(s.data))
	for k, v := range s.data {
		raw[string(k)] = v
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) get(account core.AccountID) *accountBlob {
	if blob, ok := s.data[account]; ok {
		return blob
	}
	blob := &accountBlob{Updated: time.Now().UTC()}
	s.data[account] = blob
	return blob
}

func (s *Store) Append(_ context.Context, account core.AccountID, in core.AppendInput) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob := s.get(account)
	next, err := core.AddSafe(blob.Balance, in.Delta)
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
	prevBalance := blob.Balance
	blob.Balance = next
	blob.Updated = tx.CreatedAt
	blob.Transactions = append(blob.Transactions, tx)
	if err := s.persist(); err != nil {
		// roll back the cache so a failed write is a no-op
		blob.Balance = prevBalance
		blob.Transactions = blob.Transactions[:len(blob.Transactions)-1]
		return core.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) Balance(_ context.Context, account core.AccountID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(account).Balance, nil
}

func (s *Store) HasSince(_ context.Context, account core.AccountID, action core.ActionID, ref core.ContentRef, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob := s.get(account)
	for i := len(blob.Transactions) - 1; i >= 0; i-- {
		tx := blob.Transactions[i]
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
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, tx := range s.get(account).Transactions {
		if tx.Action == action {
			n++
		}
	}
	return n, nil
}

func (s *Store) Recent(_ context.Context, account core.AccountID, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := s.get(account).Transactions
	if limit <= 0 || limit > len(txs) {
		limit = len(txs)
	}
	out := make([]core.Transaction, 0, limit)
	for i := len(txs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, txs[i])
	}
	return out, nil
}

func (s *Store) TotalEarned(_ context.Context, account core.AccountID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, tx := range s.get(account).Transactions {
		if tx.Delta > 0 {
			total += tx.Delta
		}
	}
	return total, nil
}
