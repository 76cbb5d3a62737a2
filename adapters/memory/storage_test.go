package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"loyaltykit/core"
)

func TestMemoryLedgerAppend(t *testing.T) {
	s := New()
	ctx := context.Background()

	tx, err := s.Append(ctx, "u", core.AppendInput{Action: core.ActionArticleRead, Delta: 5, Kind: core.TxEarn})
	if err != nil || tx.BalanceAfter != 5 {
		t.Fatalf("got %+v %v", tx, err)
	}
	tx, err = s.Append(ctx, "u", core.AppendInput{Action: core.ActionArticleLike, Delta: 3, Kind: core.TxEarn})
	if err != nil || tx.BalanceAfter != 8 {
		t.Fatalf("got %+v %v", tx, err)
	}
	if balance, _ := s.Balance(ctx, "u"); balance != 8 {
		t.Fatalf("balance = %d", balance)
	}
}

func TestMemoryLedgerReplayInvariant(t *testing.T) {
	s := New()
	ctx := context.Background()
	deltas := []int64{5, 3, -2, 10, 8}
	for _, d := range deltas {
		if _, err := s.Append(ctx, "u", core.AppendInput{Action: "adjustment", Delta: d, Kind: core.TxAdjust}); err != nil {
			t.Fatal(err)
		}
	}
	replayed, err := core.ReplayBalance(s.all("u"))
	if err != nil {
		t.Fatal(err)
	}
	balance, _ := s.Balance(ctx, "u")
	if replayed != balance {
		t.Fatalf("replayed %d != balance %d", replayed, balance)
	}
}

func TestMemoryLedgerHasSince(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.Append(ctx, "u", core.AppendInput{Action: core.ActionArticleRead, ContentRef: "a1", Delta: 5, Kind: core.TxEarn}); err != nil {
		t.Fatal(err)
	}
	seen, err := s.HasSince(ctx, "u", core.ActionArticleRead, "a1", time.Now().Add(-time.Minute))
	if err != nil || !seen {
		t.Fatalf("got %v %v", seen, err)
	}

	// different content ref does not match
	seen, _ = s.HasSince(ctx, "u", core.ActionArticleRead, "a2", time.Now().Add(-time.Minute))
	if seen {
		t.Fatal("ref a2 should not match")
	}

	// backdate the entry past the window
	rec := s.getOrCreate("u")
	rec.mu.Lock()
	rec.txs[0].CreatedAt = time.Now().Add(-time.Hour)
	rec.mu.Unlock()
	seen, _ = s.HasSince(ctx, "u", core.ActionArticleRead, "a1", time.Now().Add(-time.Minute))
	if seen {
		t.Fatal("expired entry should not match")
	}
}

func TestMemoryLedgerConcurrentAppends(t *testing.T) {
	s := New()
	ctx := context.Background()
	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Append(ctx, "u", core.AppendInput{Action: core.ActionArticleLike, Delta: 3, Kind: core.TxEarn})
		}()
	}
	wg.Wait()

	balance, _ := s.Balance(ctx, "u")
	if balance != n*3 {
		t.Fatalf("balance = %d, want %d", balance, n*3)
	}
	if _, err := core.ReplayBalance(s.all("u")); err != nil {
		t.Fatal(err)
	}
}

func TestMemoryLedgerRecentAndTotals(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := s.Append(ctx, "u", core.AppendInput{Action: core.ActionArticleView, Delta: 2, Kind: core.TxEarn}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Append(ctx, "u", core.AppendInput{Action: "adjustment", Delta: -4, Kind: core.TxAdjust}); err != nil {
		t.Fatal(err)
	}

	recent, err := s.Recent(ctx, "u", 3)
	if err != nil || len(recent) != 3 {
		t.Fatalf("got %d txs, err %v", len(recent), err)
	}
	if recent[0].Delta != -4 {
		t.Fatal("recent should be newest first")
	}

	earned, _ := s.TotalEarned(ctx, "u")
	if earned != 10 {
		t.Fatalf("total earned = %d, want 10", earned)
	}

	n, _ := s.CountAction(ctx, "u", core.ActionArticleView)
	if n != 5 {
		t.Fatalf("count = %d", n)
	}
}
