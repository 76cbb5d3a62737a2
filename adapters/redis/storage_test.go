package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyaltykit/core"
)

// newTestStore spins up a miniredis server and returns a Store plus cleanup.
func newTestStore(t *testing.T) (*Store, *redis.Client, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}
	return NewWithClient(client), client, cleanup
}

func TestStore_Append(t *testing.T) {
	store, _, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	account := core.AccountID("test-account")

	tx, err := store.Append(ctx, account, core.AppendInput{
		Action:     core.ActionArticleRead,
		ContentRef: "a1",
		Delta:      5,
		Kind:       core.TxEarn,
		Reason:     "read an article",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), tx.BalanceAfter)
	assert.NotEmpty(t, tx.ID)

	tx, err = store.Append(ctx, account, core.AppendInput{
		Action: core.ActionArticleLike,
		Delta:  3,
		Kind:   core.TxEarn,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), tx.BalanceAfter)

	balance, err := store.Balance(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, int64(8), balance)
}

func TestStore_BalanceAfterInHistory(t *testing.T) {
	store, _, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	account := core.AccountID("test-account")

	deltas := []int64{5, 3, -2, 10}
	for _, d := range deltas {
		_, err := store.Append(ctx, account, core.AppendInput{Action: "adjustment", Delta: d, Kind: core.TxAdjust})
		require.NoError(t, err)
	}

	recent, err := store.Recent(ctx, account, 0)
	require.NoError(t, err)
	require.Len(t, recent, len(deltas))

	// Recent is newest first; replay in creation order.
	ordered := make([]core.Transaction, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		ordered = append(ordered, recent[i])
	}
	replayed, err := core.ReplayBalance(ordered)
	require.NoError(t, err)

	balance, err := store.Balance(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, balance, replayed)
}

func TestStore_HasSince(t *testing.T) {
	store, _, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	account := core.AccountID("test-account")

	_, err := store.Append(ctx, account, core.AppendInput{
		Action:     core.ActionArticleRead,
		ContentRef: "a1",
		Delta:      5,
		Kind:       core.TxEarn,
	})
	require.NoError(t, err)

	seen, err := store.HasSince(ctx, account, core.ActionArticleRead, "a1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, seen)

	// Different content ref does not match.
	seen, err = store.HasSince(ctx, account, core.ActionArticleRead, "a2", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, seen)

	// Window starting after the entry does not match.
	seen, err = store.HasSince(ctx, account, core.ActionArticleRead, "a1", time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestStore_HasSince_EmptyRef(t *testing.T) {
	store, _, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	account := core.AccountID("test-account")

	_, err := store.Append(ctx, account, core.AppendInput{
		Action: core.ActionDailyVisit,
		Delta:  5,
		Kind:   core.TxEarn,
	})
	require.NoError(t, err)

	seen, err := store.HasSince(ctx, account, core.ActionDailyVisit, "", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestStore_CountAndTotals(t *testing.T) {
	store, _, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	account := core.AccountID("test-account")

	for i := 0; i < 5; i++ {
		_, err := store.Append(ctx, account, core.AppendInput{Action: core.ActionArticleView, Delta: 2, Kind: core.TxEarn})
		require.NoError(t, err)
	}
	_, err := store.Append(ctx, account, core.AppendInput{Action: "adjustment", Delta: -4, Kind: core.TxAdjust})
	require.NoError(t, err)

	n, err := store.CountAction(ctx, account, core.ActionArticleView)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	earned, err := store.TotalEarned(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, int64(10), earned)

	recent, err := store.Recent(ctx, account, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, int64(-4), recent[0].Delta)
}

func TestStore_EmptyAccount(t *testing.T) {
	store, _, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	account := core.AccountID("nonexistent")

	balance, err := store.Balance(ctx, account)
	require.NoError(t, err)
	assert.Zero(t, balance)

	earned, err := store.TotalEarned(ctx, account)
	require.NoError(t, err)
	assert.Zero(t, earned)

	recent, err := store.Recent(ctx, account, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestConfig_DefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "localhost:6379", config.Addr)
	assert.Equal(t, 0, config.DB)
	assert.Equal(t, 10, config.PoolSize)
	assert.Equal(t, 2, config.MinIdleConns)
	assert.Equal(t, 5*time.Second, config.DialTimeout)
}
