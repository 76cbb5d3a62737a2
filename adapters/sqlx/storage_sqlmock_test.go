package sqlx_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	storage "loyaltykit/adapters/sqlx"
	"loyaltykit/core"
)

func newMockStore(t *testing.T) (*storage.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	xdb := storage.NewWithDB(libsqlx.NewDb(db, "postgres"), storage.DriverPostgres)
	cleanup := func() {
		_ = db.Close()
	}
	return xdb, mock, cleanup
}

func TestSQLMock_Append_NewAccount(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	account := core.AccountID("u1")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT balance FROM loyalty_accounts`).
		WithArgs(account).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO loyalty_accounts`).
		WithArgs(account, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE loyalty_accounts`).
		WithArgs(int64(5), sqlmock.AnyArg(), account).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO loyalty_transactions`).
		WithArgs(sqlmock.AnyArg(), account, core.ActionArticleRead, core.ContentRef("a1"),
			int64(5), int64(5), core.TxEarn, "read an article", []byte(nil), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := store.Append(ctx, account, core.AppendInput{
		Action:     core.ActionArticleRead,
		ContentRef: "a1",
		Delta:      5,
		Kind:       core.TxEarn,
		Reason:     "read an article",
	})
	require.NoError(t, err)
	require.Equal(t, int64(5), tx.BalanceAfter)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Append_ExistingAccount(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	account := core.AccountID("u1")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT balance FROM loyalty_accounts`).
		WithArgs(account).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(95))
	mock.ExpectExec(`UPDATE loyalty_accounts`).
		WithArgs(int64(98), sqlmock.AnyArg(), account).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO loyalty_transactions`).
		WithArgs(sqlmock.AnyArg(), account, core.ActionArticleLike, core.ContentRef(""),
			int64(3), int64(98), core.TxEarn, "liked an article", []byte(nil), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := store.Append(ctx, account, core.AppendInput{
		Action: core.ActionArticleLike,
		Delta:  3,
		Kind:   core.TxEarn,
		Reason: "liked an article",
	})
	require.NoError(t, err)
	require.Equal(t, int64(98), tx.BalanceAfter)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_HasSince(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	account := core.AccountID("u1")
	since := time.Now().Add(-5 * time.Minute)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(account, core.ActionArticleRead, core.ContentRef("a1"), since).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	seen, err := store.HasSince(ctx, account, core.ActionArticleRead, "a1", since)
	require.NoError(t, err)
	require.True(t, seen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Balance_UnseenAccountIsZero(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT balance FROM loyalty_accounts`).
		WithArgs(core.AccountID("ghost")).
		WillReturnError(sql.ErrNoRows)

	balance, err := store.Balance(context.Background(), "ghost")
	require.NoError(t, err)
	require.Zero(t, balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Recent(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, account_id, action_id`).
		WithArgs(core.AccountID("u1"), 2).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "account_id", "action_id", "content_ref", "delta",
			"balance_after", "kind", "reason", "metadata", "created_at",
		}).
			AddRow("t2", "u1", "article_like", "", 3, 8, "earn", "", nil, now).
			AddRow("t1", "u1", "article_read", "a1", 5, 5, "earn", "", []byte(`{"source":"web"}`), now.Add(-time.Minute)))

	txs, err := store.Recent(context.Background(), "u1", 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.Equal(t, core.ActionID("article_like"), txs[0].Action)
	require.Equal(t, "web", txs[1].Metadata["source"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_TotalEarned(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT COALESCE`).
		WithArgs(core.AccountID("u1")).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(40))

	total, err := store.TotalEarned(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, int64(40), total)
	require.NoError(t, mock.ExpectationsWereMet())
}
