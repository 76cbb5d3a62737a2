package core

import (
	"fmt"
	"time"
)

// Action describes one catalog entry: how many points an action is worth and
// how long repeat awards for the same account/content pair are suppressed.
// A zero Cooldown disables deduplication entirely.
type Action struct {
	ID          ActionID      `json:"id"`
	Points      int64         `json:"points"`
	Description string        `json:"description"`
	Cooldown    time.Duration `json:"cooldown"`
}

// Catalog maps action ids to their static definitions.
type Catalog map[ActionID]Action

// Well-known catalog actions.
const (
	ActionArticleView    ActionID = "article_view"
	ActionArticleRead    ActionID = "article_read"
	ActionArticleLike    ActionID = "article_like"
	ActionArticleShare   ActionID = "article_share"
	ActionArticleComment ActionID = "article_comment"
	ActionDailyVisit     ActionID = "daily_visit"

	ActionFirstRead    ActionID = "first_article_read"
	ActionMilestone10  ActionID = "milestone_10_articles"
	ActionMilestone50  ActionID = "milestone_50_articles"
	ActionMilestone100 ActionID = "milestone_100_articles"
)

// DefaultCatalog returns the reference action table.
func DefaultCatalog() Catalog {
	return Catalog{
		ActionArticleView:    {ID: ActionArticleView, Points: 2, Description: "viewed an article"},
		ActionArticleRead:    {ID: ActionArticleRead, Points: 5, Description: "read an article", Cooldown: 5 * time.Minute},
		ActionArticleLike:    {ID: ActionArticleLike, Points: 3, Description: "liked an article"},
		ActionArticleShare:   {ID: ActionArticleShare, Points: 8, Description: "shared an article", Cooldown: time.Minute},
		ActionArticleComment: {ID: ActionArticleComment, Points: 10, Description: "commented on an article"},
		ActionDailyVisit:     {ID: ActionDailyVisit, Points: 5, Description: "daily visit", Cooldown: 24 * time.Hour},
		ActionFirstRead:      {ID: ActionFirstRead, Points: 20, Description: "read your first article"},
		ActionMilestone10:    {ID: ActionMilestone10, Points: 50, Description: "read 10 articles"},
		ActionMilestone50:    {ID: ActionMilestone50, Points: 150, Description: "read 50 articles"},
		ActionMilestone100:   {ID: ActionMilestone100, Points: 300, Description: "read 100 articles"},
	}
}

// Resolve looks up an action by id.
func (c Catalog) Resolve(id ActionID) (Action, error) {
	a, ok := c[id]
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, id)
	}
	return a, nil
}
