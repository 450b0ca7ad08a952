package earningsservice

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uuakee/xotc/internal/application/walletservice"
	"github.com/uuakee/xotc/internal/domain"
	"github.com/uuakee/xotc/internal/infrastructure/database"
	"github.com/uuakee/xotc/internal/repositories/investmentrepo"
	"github.com/uuakee/xotc/internal/repositories/walletrepo"
	"github.com/uuakee/xotc/pkg/metrics"
)

var testMetrics = metrics.New()

func newService(db *sql.DB) IEarningsService {
	dm := &database.DBManager{Db: db}
	logger := zerolog.Nop()
	return New(dm, investmentrepo.New(db), walletservice.New(walletrepo.New(db), logger), nil, testMetrics, logger)
}

var earningColumns = []string{
	"id", "investment_id", "user_id", "plan_id", "amount", "status", "paid_at", "created_at",
}

var investmentColumns = []string{
	"id", "user_id", "plan_id", "amount", "profit", "total_earnings", "is_active", "expires_at", "created_at", "updated_at",
}

var walletColumns = []string{
	"id", "user_id", "balance", "balance_withdrawal", "balance_commission",
	"total_investment", "total_commission", "total_deposit", "total_withdrawal",
	"created_at", "updated_at",
}

func dueEarningRows() *sqlmock.Rows {
	return sqlmock.NewRows(earningColumns).
		AddRow("e1", "i1", "u1", "p1", int64(200), "SCHEDULED", nil, time.Now().Add(-25*time.Hour))
}

func activeInvestmentRows(expiresAt time.Time, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(investmentColumns).
		AddRow("i1", "u1", "p1", int64(10000), "2", int64(0), active, expiresAt, now, now)
}

func walletRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(walletColumns).
		AddRow("w1", "u1", int64(1000), int64(0), int64(0), int64(0), int64(0), int64(0), int64(0), now, now)
}

func TestEarningsService_ProcessScheduled(t *testing.T) {
	ctx := context.Background()

	t.Run("PaysAndSchedulesNext", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		mock.ExpectQuery(`FROM investment_earnings WHERE status = \$1`).
			WillReturnRows(dueEarningRows())

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM investments WHERE id = \$1 FOR UPDATE`).WithArgs("i1").
			WillReturnRows(activeInvestmentRows(time.Now().Add(24*time.Hour), true))
		mock.ExpectExec(`UPDATE investment_earnings SET status = \$2, paid_at = now\(\)`).
			WithArgs("e1", "PAID", "SCHEDULED").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FROM wallets WHERE user_id = \$1 FOR UPDATE`).WithArgs("u1").
			WillReturnRows(walletRows())
		mock.ExpectExec(`UPDATE wallets SET balance = balance \+ \$1`).WithArgs(int64(200), "u1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE investments SET total_earnings = total_earnings \+ \$1`).
			WithArgs(int64(200), "i1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		// rollover: the next installment is 2% of the snapshotted price
		mock.ExpectQuery(`INSERT INTO investment_earnings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectCommit()

		result, err := service.ProcessScheduled(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 1, result.Paid)
		assert.Equal(t, 0, result.Unvalidated)
		assert.Equal(t, 0, result.Failed)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ExpiredInvestmentGetsNoCredit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		mock.ExpectQuery(`FROM investment_earnings WHERE status = \$1`).
			WillReturnRows(dueEarningRows())

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM investments WHERE id = \$1 FOR UPDATE`).WithArgs("i1").
			WillReturnRows(activeInvestmentRows(time.Now().Add(-time.Hour), true))
		mock.ExpectExec(`UPDATE investment_earnings SET status = \$2 WHERE`).
			WithArgs("e1", "UNVALIDATED", "SCHEDULED").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE investments SET is_active = false`).WithArgs("i1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := service.ProcessScheduled(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Paid)
		assert.Equal(t, 1, result.Unvalidated)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("OrphanedEarningIsUnvalidated", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		mock.ExpectQuery(`FROM investment_earnings WHERE status = \$1`).
			WillReturnRows(dueEarningRows())

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM investments WHERE id = \$1 FOR UPDATE`).WithArgs("i1").
			WillReturnRows(sqlmock.NewRows(investmentColumns))
		mock.ExpectExec(`UPDATE investment_earnings SET status = \$2 WHERE`).
			WithArgs("e1", "UNVALIDATED", "SCHEDULED").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := service.ProcessScheduled(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Unvalidated)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FailureIsIsolated", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		rows := sqlmock.NewRows(earningColumns).
			AddRow("e1", "i1", "u1", "p1", int64(200), "SCHEDULED", nil, time.Now().Add(-25*time.Hour)).
			AddRow("e2", "i2", "u2", "p1", int64(300), "SCHEDULED", nil, time.Now().Add(-25*time.Hour))
		mock.ExpectQuery(`FROM investment_earnings WHERE status = \$1`).WillReturnRows(rows)

		// first installment blows up and rolls back
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM investments WHERE id = \$1 FOR UPDATE`).WithArgs("i1").
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		// second installment still settles
		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM investments WHERE id = \$1 FOR UPDATE`).WithArgs("i2").
			WillReturnRows(sqlmock.NewRows(investmentColumns).
				AddRow("i2", "u2", "p1", int64(15000), "2", int64(0), true, now.Add(24*time.Hour), now, now))
		mock.ExpectExec(`UPDATE investment_earnings SET status = \$2, paid_at = now\(\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FROM wallets WHERE user_id = \$1 FOR UPDATE`).WithArgs("u2").
			WillReturnRows(sqlmock.NewRows(walletColumns).
				AddRow("w2", "u2", int64(0), int64(0), int64(0), int64(0), int64(0), int64(0), int64(0), now, now))
		mock.ExpectExec(`UPDATE wallets SET balance = balance \+ \$1`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE investments SET total_earnings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO investment_earnings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectCommit()

		result, err := service.ProcessScheduled(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, 1, result.Paid)
		assert.Equal(t, 1, result.Failed)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEarningsService_PayInvestmentEarnings(t *testing.T) {
	ctx := context.Background()

	t.Run("NoScheduledInstallment", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		mock.ExpectQuery(`FROM investment_earnings WHERE investment_id = \$1 AND status = \$2`).
			WithArgs("i1", "SCHEDULED").
			WillReturnRows(sqlmock.NewRows(earningColumns))

		err = service.PayInvestmentEarnings(ctx, "i1")
		assert.True(t, domain.IsKind(err, domain.ErrNotFound))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
