package jsonfile

import (
	"context"
	"path/filepath"
	"testing"

	"loyaltykit/core"
)

func TestJSONFilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	tx, err := s.Append(ctx, "u", core.AppendInput{Action: core.ActionArticleRead, ContentRef: "a1", Delta: 5, Kind: core.TxEarn})
	if err != nil || tx.BalanceAfter != 5 {
		t.Fatalf("got %+v %v", tx, err)
	}
	if _, err := s.Append(ctx, "u", core.AppendInput{Action: core.ActionArticleLike, Delta: 3, Kind: core.TxEarn}); err != nil {
		t.Fatal(err)
	}

	// reopen from disk
	reopened, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	balance, err := reopened.Balance(ctx, "u")
	if err != nil || balance != 8 {
		t.Fatalf("balance after reopen = %d, err %v", balance, err)
	}
	n, _ := reopened.CountAction(ctx, "u", core.ActionArticleRead)
	if n != 1 {
		t.Fatalf("count = %d", n)
	}
	recent, _ := reopened.Recent(ctx, "u", 10)
	if len(recent) != 2 || recent[0].Action != core.ActionArticleLike {
		t.Fatalf("unexpected history: %+v", recent)
	}
}

func TestJSONFileMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "ledger.json")
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	balance, err := s.Balance(context.Background(), "u")
	if err != nil || balance != 0 {
		t.Fatalf("got %d %v", balance, err)
	}
}
