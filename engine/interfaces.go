package engine

import (
	"context"
	"time"

	"loyaltykit/core"
)

// Ledger abstracts persistence for the points ledger.
//
// Append must apply the balance update and the transaction insert as a single
// atomic unit, serialized per account: concurrent Appends for the same
// account must never lose an increment, and a failure must leave neither a
// dangling transaction nor a stale balance. The account is created with a
// zero balance the first time it is seen.
type Ledger interface {
	Append(ctx context.Context, account core.AccountID, in core.AppendInput) (core.Transaction, error)
	Balance(ctx context.Context, account core.AccountID) (int64, error)
	// HasSince reports whether a transaction exists for the account/action
	// pair, with an exactly matching content ref (empty matches empty),
	// created at or after since.
	HasSince(ctx context.Context, account core.AccountID, action core.ActionID, ref core.ContentRef, since time.Time) (bool, error)
	CountAction(ctx context.Context, account core.AccountID, action core.ActionID) (int64, error)
	// Recent returns up to limit transactions, newest first.
	Recent(ctx context.Context, account core.AccountID, limit int) ([]core.Transaction, error)
	// TotalEarned sums all positive deltas for the account.
	TotalEarned(ctx context.Context, account core.AccountID) (int64, error)
}
