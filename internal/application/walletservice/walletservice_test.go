package walletservice

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uuakee/xotc/internal/domain"
	"github.com/uuakee/xotc/internal/repositories/walletrepo"
)

var walletColumns = []string{
	"id", "user_id", "balance", "balance_withdrawal", "balance_commission",
	"total_investment", "total_commission", "total_deposit", "total_withdrawal",
	"created_at", "updated_at",
}

func walletRow(balance int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(walletColumns).
		AddRow("w1", "u1", balance, int64(0), int64(0), int64(0), int64(0), int64(0), int64(0), now, now)
}

func TestWalletService_Credit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := New(walletrepo.New(db), zerolog.Nop())
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM wallets WHERE user_id = \$1 FOR UPDATE`).
			WithArgs("u1").
			WillReturnRows(walletRow(0))
		mock.ExpectExec(`UPDATE wallets SET balance = balance \+ \$1`).
			WithArgs(int64(500), "u1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := db.Begin()
		require.NoError(t, err)
		require.NoError(t, service.Credit(ctx, tx, "u1", domain.SubAccountBalance, 500))
		require.NoError(t, tx.Commit())
	})

	t.Run("RejectsNonPositiveAmount", func(t *testing.T) {
		mock.ExpectBegin()
		tx, err := db.Begin()
		require.NoError(t, err)

		err = service.Credit(ctx, tx, "u1", domain.SubAccountBalance, 0)
		assert.True(t, domain.IsKind(err, domain.ErrInvalidAmount))

		err = service.Credit(ctx, tx, "u1", domain.SubAccountBalance, -10)
		assert.True(t, domain.IsKind(err, domain.ErrInvalidAmount))

		mock.ExpectRollback()
		require.NoError(t, tx.Rollback())
	})

	t.Run("WalletMissing", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM wallets WHERE user_id = \$1 FOR UPDATE`).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(walletColumns))
		mock.ExpectRollback()

		tx, err := db.Begin()
		require.NoError(t, err)
		err = service.Credit(ctx, tx, "ghost", domain.SubAccountBalance, 100)
		assert.True(t, domain.IsKind(err, domain.ErrNotFound))
		require.NoError(t, tx.Rollback())
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletService_Debit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := New(walletrepo.New(db), zerolog.Nop())
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs("u1").
			WillReturnRows(walletRow(1000))
		mock.ExpectExec(`UPDATE wallets SET balance = balance - \$1`).
			WithArgs(int64(700), "u1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := db.Begin()
		require.NoError(t, err)
		require.NoError(t, service.Debit(ctx, tx, "u1", domain.SubAccountBalance, 700))
		require.NoError(t, tx.Commit())
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs("u1").
			WillReturnRows(walletRow(100))
		// the guarded update touches zero rows when the balance is short
		mock.ExpectExec(`UPDATE wallets SET balance = balance - \$1`).
			WithArgs(int64(700), "u1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := db.Begin()
		require.NoError(t, err)
		err = service.Debit(ctx, tx, "u1", domain.SubAccountBalance, 700)
		assert.True(t, domain.IsKind(err, domain.ErrInsufficientFunds))
		require.NoError(t, tx.Rollback())
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

