package core

// MilestoneRule grants a one-time bonus action once the account's ledger
// contains at least Threshold transactions for the counted action. A rule is
// considered already granted exactly when a transaction for Bonus exists in
// the ledger; no separate per-account flag is kept.
type MilestoneRule struct {
	Bonus     ActionID `json:"bonus"`
	Counts    ActionID `json:"counts"`
	Threshold int64    `json:"threshold"`
}

// DefaultMilestones returns the reference milestone rules. The one-time
// first_article_read bonus is deliberately not among them: the first read of
// a new account pays exactly the catalog points. Callers that want the bonus
// add a threshold-1 rule for ActionFirstRead over the same mechanism.
func DefaultMilestones() []MilestoneRule {
	return []MilestoneRule{
		{Bonus: ActionMilestone10, Counts: ActionArticleRead, Threshold: 10},
		{Bonus: ActionMilestone50, Counts: ActionArticleRead, Threshold: 50},
		{Bonus: ActionMilestone100, Counts: ActionArticleRead, Threshold: 100},
	}
}
