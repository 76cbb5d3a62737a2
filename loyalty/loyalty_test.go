package loyalty

import (
	"context"
	"testing"
	"time"

	mem "loyaltykit/adapters/memory"
	"loyaltykit/analytics"
	"loyaltykit/core"
	"loyaltykit/engine"
	"loyaltykit/leaderboard"
	"loyaltykit/realtime"
)

func TestNewDefaultsAndOptions(t *testing.T) {
	hub := realtime.NewHub()
	svc := New(
		WithRealtime(hub),
		WithLedger(mem.New()),
		WithDispatchMode(engine.DispatchSync),
		WithMilestones([]core.MilestoneRule{}),
	)
	defer svc.Close()

	_, ch := hub.Subscribe(2)

	res, err := svc.Award(context.Background(), "alice", core.ActionArticleRead, engine.WithContentRef("a1"))
	if err != nil || !res.Granted || res.NewBalance != 5 {
		t.Fatalf("award = %+v, err %v", res, err)
	}

	// realtime bridge should receive the points event
	ev := <-ch
	if ev.Account != "alice" || ev.Type != core.EventPointsAwarded {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestInMemoryFallback(t *testing.T) {
	svc := New(WithDispatchMode(engine.DispatchSync), WithMilestones([]core.MilestoneRule{}))
	defer svc.Close()

	if _, err := svc.Award(context.Background(), "bob", core.ActionArticleLike); err != nil {
		t.Fatalf("fallback award: %v", err)
	}
	stats, err := svc.Stats(context.Background(), "bob")
	if err != nil {
		t.Fatalf("fallback stats: %v", err)
	}
	if stats.Balance != 3 {
		t.Fatalf("expected 3 points, got %d", stats.Balance)
	}
}

func TestHooksAndLeaderboardBridges(t *testing.T) {
	dau := analytics.NewDAU()
	board := leaderboard.NewStandings()
	svc := New(
		WithDispatchMode(engine.DispatchSync),
		WithMilestones([]core.MilestoneRule{}),
		WithHooks(dau),
		WithLeaderboard(board),
	)
	defer svc.Close()

	ctx := context.Background()
	if _, err := svc.Award(ctx, "alice", core.ActionArticleComment); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Award(ctx, "bob", core.ActionArticleView); err != nil {
		t.Fatal(err)
	}

	day := time.Now().UTC().Format("2006-01-02")
	if got := dau.Count(day); got != 2 {
		t.Fatalf("DAU = %d, want 2", got)
	}

	top := board.TopN(2)
	if len(top) != 2 || top[0].Account != "alice" || top[0].Balance != 10 {
		t.Fatalf("unexpected standings: %+v", top)
	}
}
