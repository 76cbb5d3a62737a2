package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// AccountID uniquely identifies a loyalty account. Accounts are created
// implicitly the first time points are awarded to an unseen id.
type AccountID string

// ActionID names an entry in the action catalog (e.g. "article_read").
type ActionID string

// ContentRef optionally scopes an action to the content it was performed on,
// such as an article id. Empty means the action is not content-scoped.
type ContentRef string

// TxKind distinguishes ledger entry categories.
type TxKind string

const (
	// TxEarn marks points earned through a catalog action or milestone bonus.
	TxEarn TxKind = "earn"
	// TxAdjust marks manual corrections; deltas may be negative.
	TxAdjust TxKind = "adjust"
)

// Transaction is an immutable, append-only ledger entry. BalanceAfter is the
// account balance snapshot taken after applying Delta.
type Transaction struct {
	ID           string         `json:"id"`
	Account      AccountID      `json:"account"`
	Action       ActionID       `json:"action"`
	ContentRef   ContentRef     `json:"content_ref,omitempty"`
	Delta        int64          `json:"delta"`
	BalanceAfter int64          `json:"balance_after"`
	Kind         TxKind         `json:"kind"`
	Reason       string         `json:"reason,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AppendInput describes one ledger entry to record. Ledger adapters turn it
// into a Transaction with an assigned id, timestamp, and balance snapshot.
type AppendInput struct {
	Action     ActionID
	ContentRef ContentRef
	Delta      int64
	Kind       TxKind
	Reason     string
	Metadata   map[string]any
}

// AccountState is a snapshot of an account's cached balance.
type AccountState struct {
	Account AccountID `json:"account"`
	Balance int64     `json:"balance"`
	Updated time.Time `json:"updated"`
}

// AddSafe adds delta to base ensuring no signed overflow occurs.
func AddSafe(base int64, delta int64) (int64, error) {
	if (delta > 0 && base > math.MaxInt64-delta) || (delta < 0 && base < math.MinInt64-delta) {
		return 0, errors.New("integer overflow in AddSafe")
	}
	return base + delta, nil
}

// NormalizeAccountID trims and lowercases account identifiers.
func NormalizeAccountID(id AccountID) (AccountID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", ErrInvalidAccount
	}
	return AccountID(strings.ToLower(s)), nil
}

// ReplayBalance walks transactions in creation order, verifying that each
// BalanceAfter equals the running sum of deltas, and returns the final
// balance. Used to audit adapters against the ledger chain invariant.
func ReplayBalance(txs []Transaction) (int64, error) {
	var balance int64
	for i, tx := range txs {
		next, err := AddSafe(balance, tx.Delta)
		if err != nil {
			return 0, err
		}
		if tx.BalanceAfter != next {
			return 0, fmt.Errorf("ledger chain broken at entry %d: balance_after=%d, want %d", i, tx.BalanceAfter, next)
		}
		balance = next
	}
	return balance, nil
}
