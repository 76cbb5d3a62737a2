package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loyaltykit/core"
)

// DefaultHistoryPageSize bounds the recent-transactions page in Stats.
const DefaultHistoryPageSize = 10

// LoyaltyService wires the ledger, action catalog, level table, and milestone
// rules into the award engine.
type LoyaltyService struct {
	ledger     Ledger
	bus        *EventBus
	catalog    core.Catalog
	levels     core.LevelTable
	milestones []core.MilestoneRule
	log        *slog.Logger
	pageSize   int
}

// NewLoyaltyService builds a service. Ledger and bus are required; nil
// catalog, levels, or milestones fall back to the reference configuration.
// An invalid level table is a configuration fault and panics.
func NewLoyaltyService(ledger Ledger, bus *EventBus, catalog core.Catalog, levels core.LevelTable, milestones []core.MilestoneRule) *LoyaltyService {
	if ledger == nil || bus == nil {
		panic("NewLoyaltyService requires non-nil ledger and bus")
	}
	if catalog == nil {
		catalog = core.DefaultCatalog()
	}
	if levels == nil {
		levels = core.DefaultLevels()
	}
	if err := levels.Validate(); err != nil {
		panic(fmt.Sprintf("invalid level table: %v", err))
	}
	if milestones == nil {
		milestones = core.DefaultMilestones()
	}
	return &LoyaltyService{
		ledger:     ledger,
		bus:        bus,
		catalog:    catalog,
		levels:     levels,
		milestones: milestones,
		log:        slog.Default(),
		pageSize:   DefaultHistoryPageSize,
	}
}

// SetLogger overrides the default slog logger.
func (s *LoyaltyService) SetLogger(l *slog.Logger) {
	if l != nil {
		s.log = l
	}
}

// SetHistoryPageSize overrides the Stats recent-history page size.
func (s *LoyaltyService) SetHistoryPageSize(n int) {
	if n > 0 {
		s.pageSize = n
	}
}

// Subscribe convenience method.
func (s *LoyaltyService) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

func (s *LoyaltyService) Publish(ctx context.Context, ev core.Event) {
	s.bus.Publish(ctx, ev)
}

func (s *LoyaltyService) Close() { s.bus.Close() }

// AwardResult reports the outcome of one Award call. A suppressed duplicate
// is a normal outcome: Granted is false, Reason is set, and nothing was
// written to the ledger.
type AwardResult struct {
	Granted    bool            `json:"granted"`
	Reason     string          `json:"reason,omitempty"`
	Points     int64           `json:"points,omitempty"`
	NewBalance int64           `json:"new_balance"`
	LevelUp    string          `json:"level_up,omitempty"`
	Milestones []core.ActionID `json:"milestones,omitempty"`
}

type awardParams struct {
	ref      core.ContentRef
	metadata map[string]any
}

// AwardOption customizes a single Award call.
type AwardOption func(*awardParams)

// WithContentRef scopes the award to a content item (e.g. an article id),
// which also scopes the cooldown guard.
func WithContentRef(ref core.ContentRef) AwardOption {
	return func(p *awardParams) { p.ref = ref }
}

// WithMetadata attaches free-form metadata to the ledger entry.
func WithMetadata(md map[string]any) AwardOption {
	return func(p *awardParams) { p.metadata = md }
}

// Award records points for an action: resolve the catalog entry, consult the
// cooldown guard, atomically append to the ledger, detect a level crossing,
// and run one bounded milestone pass.
//
// The guard check and the append are separate storage calls; two racing
// awards for the same account/action/ref can both pass the guard within the
// window. Accepted for low-value, high-frequency actions.
func (s *LoyaltyService) Award(ctx context.Context, account core.AccountID, action core.ActionID, opts ...AwardOption) (AwardResult, error) {
	account, err := core.NormalizeAccountID(account)
	if err != nil {
		return AwardResult{}, err
	}
	act, err := s.catalog.Resolve(action)
	if err != nil {
		return AwardResult{}, err
	}
	var p awardParams
	for _, o := range opts {
		o(&p)
	}

	if act.Cooldown > 0 {
		seen, err := s.ledger.HasSince(ctx, account, action, p.ref, time.Now().Add(-act.Cooldown))
		if err != nil {
			return AwardResult{}, fmt.Errorf("cooldown guard for %s: %w", action, err)
		}
		if seen {
			s.bus.Publish(ctx, core.NewAwardSuppressed(account, action, p.ref))
			return AwardResult{Granted: false, Reason: core.ReasonDuplicateSuppressed}, nil
		}
	}

	tx, err := s.grant(ctx, account, act, p.ref, p.metadata)
	if err != nil {
		return AwardResult{}, fmt.Errorf("award %s: %w", action, err)
	}

	res := AwardResult{Granted: true, Points: act.Points, NewBalance: tx.BalanceAfter}
	levelBefore := s.levels.LevelFor(tx.BalanceAfter - tx.Delta)

	finalBalance := tx.BalanceAfter
	if !s.isMilestoneBonus(action) {
		res.Milestones = s.milestonePass(ctx, account)
		if len(res.Milestones) > 0 {
			if b, err := s.ledger.Balance(ctx, account); err == nil {
				finalBalance = b
			} else {
				s.log.Warn("balance refresh after milestones failed", "account", account, "error", err)
			}
		}
	}
	res.NewBalance = finalBalance

	levelAfter := s.levels.LevelFor(finalBalance)
	if s.levels.Rank(levelAfter.Name) > s.levels.Rank(levelBefore.Name) {
		res.LevelUp = levelAfter.Name
		s.bus.Publish(ctx, core.NewLevelUp(account, levelAfter.Name, finalBalance))
	}
	return res, nil
}

// CheckMilestones runs one bounded pass over the milestone rules and returns
// the bonus ids granted by this call. Rule failures are logged and isolated;
// they never abort the pass.
func (s *LoyaltyService) CheckMilestones(ctx context.Context, account core.AccountID) ([]core.ActionID, error) {
	account, err := core.NormalizeAccountID(account)
	if err != nil {
		return nil, err
	}
	return s.milestonePass(ctx, account), nil
}

// grant appends one earn transaction and publishes the points event.
func (s *LoyaltyService) grant(ctx context.Context, account core.AccountID, act core.Action, ref core.ContentRef, md map[string]any) (core.Transaction, error) {
	tx, err := s.ledger.Append(ctx, account, core.AppendInput{
		Action:     act.ID,
		ContentRef: ref,
		Delta:      act.Points,
		Kind:       core.TxEarn,
		Reason:     act.Description,
		Metadata:   md,
	})
	if err != nil {
		return core.Transaction{}, err
	}
	s.bus.Publish(ctx, core.NewPointsAwarded(account, act.ID, ref, act.Points, tx.BalanceAfter))
	return tx, nil
}

// milestonePass grants every satisfied, not-yet-granted milestone. Bonus
// grants go through grant directly and never re-enter the pass, so milestone
// transactions cannot trigger further milestones within one call.
func (s *LoyaltyService) milestonePass(ctx context.Context, account core.AccountID) []core.ActionID {
	var fired []core.ActionID
	for _, rule := range s.milestones {
		n, err := s.ledger.CountAction(ctx, account, rule.Counts)
		if err != nil {
			s.log.Warn("milestone count failed", "account", account, "bonus", rule.Bonus, "error", err)
			continue
		}
		if n < rule.Threshold {
			continue
		}
		granted, err := s.ledger.CountAction(ctx, account, rule.Bonus)
		if err != nil {
			s.log.Warn("milestone lookback failed", "account", account, "bonus", rule.Bonus, "error", err)
			continue
		}
		if granted > 0 {
			continue
		}
		act, err := s.catalog.Resolve(rule.Bonus)
		if err != nil {
			s.log.Warn("milestone bonus not in catalog", "bonus", rule.Bonus, "error", err)
			continue
		}
		tx, err := s.grant(ctx, account, act, "", nil)
		if err != nil {
			s.log.Warn("milestone grant failed", "account", account, "bonus", rule.Bonus, "error", err)
			continue
		}
		s.bus.Publish(ctx, core.NewMilestoneUnlocked(account, rule.Bonus, act.Points, tx.BalanceAfter))
		fired = append(fired, rule.Bonus)
	}
	return fired
}

func (s *LoyaltyService) isMilestoneBonus(action core.ActionID) bool {
	for _, rule := range s.milestones {
		if rule.Bonus == action {
			return true
		}
	}
	return false
}

// Stats is a read-only projection of one account's loyalty standing.
type Stats struct {
	Account      core.AccountID     `json:"account"`
	Balance      int64              `json:"balance"`
	TotalEarned  int64              `json:"total_earned"`
	Level        core.Level         `json:"level"`
	NextLevel    string             `json:"next_level,omitempty"`
	PointsToNext int64              `json:"points_to_next,omitempty"`
	Recent       []core.Transaction `json:"recent"`
}

// Stats returns the current balance, lifetime earned total, level standing,
// and the most recent ledger page for an account.
func (s *LoyaltyService) Stats(ctx context.Context, account core.AccountID) (Stats, error) {
	account, err := core.NormalizeAccountID(account)
	if err != nil {
		return Stats{}, err
	}
	balance, err := s.ledger.Balance(ctx, account)
	if err != nil {
		return Stats{}, fmt.Errorf("stats balance: %w", err)
	}
	earned, err := s.ledger.TotalEarned(ctx, account)
	if err != nil {
		return Stats{}, fmt.Errorf("stats total earned: %w", err)
	}
	recent, err := s.ledger.Recent(ctx, account, s.pageSize)
	if err != nil {
		return Stats{}, fmt.Errorf("stats history: %w", err)
	}

	st := Stats{
		Account:     account,
		Balance:     balance,
		TotalEarned: earned,
		Level:       s.levels.LevelFor(balance),
		Recent:      recent,
	}
	if next, ok := s.levels.Next(st.Level); ok {
		st.NextLevel = next.Name
		st.PointsToNext = next.Min - balance
	}
	return st, nil
}
