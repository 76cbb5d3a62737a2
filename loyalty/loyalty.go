package loyalty

import (
	"context"
	"log/slog"

	"loyaltykit/adapters/memory"
	"loyaltykit/analytics"
	"loyaltykit/core"
	"loyaltykit/engine"
	"loyaltykit/leaderboard"
	"loyaltykit/realtime"
)

// allEventTypes enumerates every event the engine publishes, for bridges that
// want the full stream.
var allEventTypes = []core.EventType{
	core.EventPointsAwarded,
	core.EventAwardSuppressed,
	core.EventLevelUp,
	core.EventMilestoneUnlocked,
}

// Option configures the loyalty service builder.
type Option func(*config)

type config struct {
	ledger     engine.Ledger
	catalog    core.Catalog
	levels     core.LevelTable
	milestones []core.MilestoneRule
	mode       engine.DispatchMode
	hub        *realtime.Hub
	hooks      []analytics.Hook
	board      leaderboard.Board
	logger     *slog.Logger
	pageSize   int
}

// WithLedger sets the persistence adapter.
func WithLedger(l engine.Ledger) Option { return func(c *config) { c.ledger = l } }

// WithCatalog overrides the reference action catalog.
func WithCatalog(cat core.Catalog) Option { return func(c *config) { c.catalog = cat } }

// WithLevels overrides the reference level table.
func WithLevels(lt core.LevelTable) Option { return func(c *config) { c.levels = lt } }

// WithMilestones overrides the reference milestone rules. Pass an empty slice
// to disable milestones entirely.
func WithMilestones(rules []core.MilestoneRule) Option {
	return func(c *config) { c.milestones = rules }
}

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive all engine events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithHooks registers analytics hooks on the full event stream.
func WithHooks(hooks ...analytics.Hook) Option {
	return func(c *config) { c.hooks = append(c.hooks, hooks...) }
}

// WithLeaderboard keeps a standings board in step with award events.
func WithLeaderboard(b leaderboard.Board) Option { return func(c *config) { c.board = b } }

// WithLogger sets the engine's structured logger.
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// WithHistoryPageSize bounds the recent-transactions page in stats.
func WithHistoryPageSize(n int) Option { return func(c *config) { c.pageSize = n } }

// New builds a configured LoyaltyService. If not provided, defaults are used:
//   - ledger: in-memory
//   - catalog, levels, milestones: reference configuration
//   - dispatch: async
func New(opts ...Option) *engine.LoyaltyService {
	cfg := &config{mode: engine.DispatchAsync}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.ledger == nil {
		cfg.ledger = memory.New()
	}

	bus := engine.NewEventBus(cfg.mode)
	svc := engine.NewLoyaltyService(cfg.ledger, bus, cfg.catalog, cfg.levels, cfg.milestones)
	if cfg.logger != nil {
		svc.SetLogger(cfg.logger)
	}
	if cfg.pageSize > 0 {
		svc.SetHistoryPageSize(cfg.pageSize)
	}

	if cfg.hub != nil {
		hub := cfg.hub
		for _, typ := range allEventTypes {
			bus.Subscribe(typ, func(ctx context.Context, e core.Event) { hub.Broadcast(ctx, e) })
		}
	}
	for _, hook := range cfg.hooks {
		h := hook
		for _, typ := range allEventTypes {
			bus.Subscribe(typ, func(_ context.Context, e core.Event) { h.OnEvent(e) })
		}
	}
	if cfg.board != nil {
		board := cfg.board
		update := func(_ context.Context, e core.Event) { board.Update(e.Account, e.Balance) }
		bus.Subscribe(core.EventPointsAwarded, update)
		bus.Subscribe(core.EventMilestoneUnlocked, update)
	}
	return svc
}
