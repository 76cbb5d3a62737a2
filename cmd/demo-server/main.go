package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"loyaltykit/api/httpapi"
	"loyaltykit/core"
	"loyaltykit/leaderboard"
	"loyaltykit/loyalty"
	"loyaltykit/realtime"
)

// Demo server: in-memory ledger, reference catalog and levels, live event
// stream on /ws. Try:
//
//	curl -X POST 'localhost:8080/accounts/alice/award?action=article_read&ref=a1'
//	curl 'localhost:8080/accounts/alice/stats'
//	curl 'localhost:8080/leaderboard'
func main() {
	// Use readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(textHandler))

	hub := realtime.NewHub()
	board := leaderboard.NewStandings()
	svc := loyalty.New(
		loyalty.WithRealtime(hub),
		loyalty.WithLeaderboard(board),
	)
	defer svc.Close()

	// Log level-ups and milestones as they happen.
	svc.Subscribe(core.EventLevelUp, func(_ context.Context, e core.Event) {
		slog.Info("level up", "account", e.Account, "level", e.Level, "balance", e.Balance)
	})
	svc.Subscribe(core.EventMilestoneUnlocked, func(_ context.Context, e core.Event) {
		slog.Info("milestone unlocked", "account", e.Account, "bonus", e.Action, "points", e.Delta)
	})

	mux := httpapi.NewMux(svc, hub, httpapi.Options{Board: board})

	slog.Info("starting demo server on :8080")

	if err := http.ListenAndServe(":8080", mux); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}
