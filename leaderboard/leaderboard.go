package leaderboard

import "loyaltykit/core"

// Entry represents one account's position by balance.
type Entry struct {
	Account core.AccountID `json:"account"`
	Balance int64          `json:"balance"`
}

// Board abstracts leaderboard operations.
type Board interface {
	Update(account core.AccountID, balance int64)
	Remove(account core.AccountID)
	TopN(n int) []Entry
	Get(account core.AccountID) (Entry, bool)
	Rank(account core.AccountID) (int, bool)
}
