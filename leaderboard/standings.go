package leaderboard

import (
	"sort"
	"sync"

	"loyaltykit/core"
)

// Standings is an in-memory Board keeping entries sorted by balance
// descending, ties broken by account id for stable ordering. Suited to the
// tens of thousands of accounts a single publication sees; larger deployments
// should project standings into Redis instead.
type Standings struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[core.AccountID]int // position in entries
}

func NewStandings() *Standings {
	return &Standings{index: map[core.AccountID]int{}}
}

// Update sets the account's balance and re-sorts it into place.
func (s *Standings) Update(account core.AccountID, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos, ok := s.index[account]; ok {
		s.entries[pos].Balance = balance
		s.resift(pos)
		return
	}
	s.entries = append(s.entries, Entry{Account: account, Balance: balance})
	pos := len(s.entries) - 1
	s.index[account] = pos
	s.resift(pos)
}

func (s *Standings) Remove(account core.AccountID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.index[account]
	if !ok {
		return
	}
	s.entries = append(s.entries[:pos], s.entries[pos+1:]...)
	delete(s.index, account)
	for i := pos; i < len(s.entries); i++ {
		s.index[s.entries[i].Account] = i
	}
}

// resift moves the entry at pos to its sorted position. Single awards move an
// account by a few points, so the walk is short in practice.
func (s *Standings) resift(pos int) {
	for pos > 0 && less(s.entries[pos], s.entries[pos-1]) {
		s.swap(pos, pos-1)
		pos--
	}
	for pos < len(s.entries)-1 && less(s.entries[pos+1], s.entries[pos]) {
		s.swap(pos, pos+1)
		pos++
	}
}

func (s *Standings) swap(i, j int) {
	s.entries[i], s.entries[j] = s.entries[j], s.entries[i]
	s.index[s.entries[i].Account] = i
	s.index[s.entries[j].Account] = j
}

// less orders by balance descending, then account id ascending.
func less(a, b Entry) bool {
	if a.Balance != b.Balance {
		return a.Balance > b.Balance
	}
	return a.Account < b.Account
}

func (s *Standings) TopN(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]Entry, n)
	copy(out, s.entries[:n])
	return out
}

func (s *Standings) Get(account core.AccountID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.index[account]
	if !ok {
		return Entry{}, false
	}
	return s.entries[pos], true
}

// Rank returns the 1-based position of the account.
func (s *Standings) Rank(account core.AccountID) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.index[account]
	if !ok {
		return 0, false
	}
	return pos + 1, true
}

// Rebuild replaces the whole board, e.g. after replaying a ledger at startup.
func (s *Standings) Rebuild(entries []Entry) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = sorted
	s.index = make(map[core.AccountID]int, len(sorted))
	for i, e := range sorted {
		s.index[e.Account] = i
	}
}

var _ Board = (*Standings)(nil)
