package core

import (
	"fmt"
	"sort"
)

// Level is one membership tier. Tiers cover balances from Min upward until
// the next tier's Min; the top tier is unbounded.
type Level struct {
	Name     string   `json:"name"`
	Min      int64    `json:"min"`
	Benefits []string `json:"benefits,omitempty"`
}

// LevelTable is an ordered list of tiers, ascending by Min. The first tier
// must start at 0 so that every balance maps to exactly one tier.
type LevelTable []Level

// DefaultLevels returns the reference membership tiers.
func DefaultLevels() LevelTable {
	return LevelTable{
		{Name: "Beginner", Min: 0, Benefits: []string{"base rewards"}},
		{Name: "Active", Min: 100, Benefits: []string{"base rewards", "weekly digest"}},
		{Name: "Loyal", Min: 300, Benefits: []string{"base rewards", "weekly digest", "early access"}},
		{Name: "Expert", Min: 700, Benefits: []string{"base rewards", "weekly digest", "early access", "expert badge"}},
		{Name: "Ambassador", Min: 1500, Benefits: []string{"base rewards", "weekly digest", "early access", "expert badge", "ambassador perks"}},
	}
}

// Validate checks the table is non-empty, starts at 0, and is strictly
// ascending. A failing table is a configuration fault, not a runtime state.
func (t LevelTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("level table is empty")
	}
	if t[0].Min != 0 {
		return fmt.Errorf("level table must start at 0, got %d", t[0].Min)
	}
	for i := 1; i < len(t); i++ {
		if t[i].Min <= t[i-1].Min {
			return fmt.Errorf("level table not ascending at %q", t[i].Name)
		}
	}
	return nil
}

// Rank returns the tier index of the given level name, or -1.
func (t LevelTable) Rank(name string) int {
	for i, l := range t {
		if l.Name == name {
			return i
		}
	}
	return -1
}

// LevelFor maps a balance to its tier. Pure; balances below zero clamp to
// the base tier. Monotonic: b1 <= b2 implies rank(b1) <= rank(b2).
func (t LevelTable) LevelFor(balance int64) Level {
	// first tier whose Min exceeds balance, minus one
	i := sort.Search(len(t), func(i int) bool { return t[i].Min > balance })
	if i == 0 {
		return t[0]
	}
	return t[i-1]
}

// Next returns the tier above the given one, or false at the top.
func (t LevelTable) Next(l Level) (Level, bool) {
	r := t.Rank(l.Name)
	if r < 0 || r+1 >= len(t) {
		return Level{}, false
	}
	return t[r+1], true
}
