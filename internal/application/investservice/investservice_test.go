package investservice

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uuakee/xotc/internal/application/walletservice"
	"github.com/uuakee/xotc/internal/domain"
	"github.com/uuakee/xotc/internal/infrastructure/database"
	"github.com/uuakee/xotc/internal/repositories/investmentrepo"
	"github.com/uuakee/xotc/internal/repositories/planrepo"
	"github.com/uuakee/xotc/internal/repositories/referralrepo"
	"github.com/uuakee/xotc/internal/repositories/transactionrepo"
	"github.com/uuakee/xotc/internal/repositories/userrepo"
	"github.com/uuakee/xotc/internal/repositories/walletrepo"
	"github.com/uuakee/xotc/pkg/metrics"
)

var testMetrics = metrics.New()

func newService(db *sql.DB) IInvestService {
	dm := &database.DBManager{Db: db}
	logger := zerolog.Nop()
	return New(
		dm,
		planrepo.New(db),
		investmentrepo.New(db),
		transactionrepo.New(db),
		userrepo.New(db),
		referralrepo.New(db),
		walletservice.New(walletrepo.New(db), logger),
		nil,
		testMetrics,
		logger,
	)
}

var userColumns = []string{
	"id", "real_name", "phone", "cpf", "password_hash", "is_admin", "level", "is_active",
	"referral_code", "invited_by_id", "referral_count", "last_login_at", "created_at", "updated_at",
}

var planColumns = []string{
	"id", "name", "price", "days", "profit", "max_buy", "level", "is_active", "created_at", "updated_at",
}

var walletColumns = []string{
	"id", "user_id", "balance", "balance_withdrawal", "balance_commission",
	"total_investment", "total_commission", "total_deposit", "total_withdrawal",
	"created_at", "updated_at",
}

func userRow(id string, level domain.UserLevel, invitedBy interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userColumns).
		AddRow(id, "Ana Souza", "+5511999990000", "52998224725", "hash", false, string(level), true,
			"CODE1234", invitedBy, 0, nil, now, now)
}

func planRow(id string, priceCents int64, profit string, maxBuy int, level domain.UserLevel, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(planColumns).
		AddRow(id, "Starter", priceCents, 30, profit, maxBuy, string(level), active, now, now)
}

func walletRow(userID string, balance int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(walletColumns).
		AddRow("w-"+userID, userID, balance, int64(0), int64(0), int64(0), int64(0), int64(0), int64(0), now, now)
}

func timestampsRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now)
}

func TestInvestService_Purchase(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs("u1").
			WillReturnRows(userRow("u1", domain.Level5, nil))
		mock.ExpectQuery(`FROM plans WHERE id = \$1`).WithArgs("p1").
			WillReturnRows(planRow("p1", 10000, "2", 3, domain.Level5, true))

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM investments`).WithArgs("u1", "p1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`FROM wallets WHERE user_id = \$1 FOR UPDATE`).WithArgs("u1").
			WillReturnRows(walletRow("u1", 50000))
		mock.ExpectExec(`UPDATE wallets SET balance = balance - \$1`).WithArgs(int64(10000), "u1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO investments`).WillReturnRows(timestampsRow())
		mock.ExpectQuery(`INSERT INTO transactions`).WillReturnRows(timestampsRow())
		mock.ExpectExec(`UPDATE wallets SET total_investment = total_investment \+ \$1`).
			WithArgs(int64(10000), "u1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO investment_earnings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectCommit()

		investment, err := service.Purchase(ctx, "u1", "p1")
		require.NoError(t, err)
		assert.Equal(t, "u1", investment.UserID)
		assert.Equal(t, int64(10000), investment.AmountCents)
		assert.True(t, investment.IsActive)
		assert.True(t, investment.ExpiresAt.After(time.Now().Add(29*24*time.Hour)))

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PaysInviterCommission", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs("u1").
			WillReturnRows(userRow("u1", domain.Level5, "inv1"))
		mock.ExpectQuery(`FROM plans WHERE id = \$1`).WithArgs("p1").
			WillReturnRows(planRow("p1", 10000, "2", 3, domain.Level5, true))

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM investments`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`FROM wallets WHERE user_id = \$1 FOR UPDATE`).WithArgs("u1").
			WillReturnRows(walletRow("u1", 50000))
		mock.ExpectExec(`UPDATE wallets SET balance = balance - \$1`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO investments`).WillReturnRows(timestampsRow())
		mock.ExpectQuery(`INSERT INTO transactions`).WillReturnRows(timestampsRow())
		mock.ExpectExec(`UPDATE wallets SET total_investment`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO investment_earnings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

		// cascade: inviter at LEVEL_3 earns 5% of the plan price
		mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs("inv1").
			WillReturnRows(userRow("inv1", domain.Level3, nil))
		mock.ExpectQuery(`FROM commission_levels WHERE level = \$1`).WithArgs("LEVEL_3").
			WillReturnRows(sqlmock.NewRows([]string{"level", "percentage", "min_referrals"}).
				AddRow("LEVEL_3", "5", 10))
		mock.ExpectQuery(`FROM wallets WHERE user_id = \$1 FOR UPDATE`).WithArgs("inv1").
			WillReturnRows(walletRow("inv1", 0))
		mock.ExpectExec(`UPDATE wallets SET balance_commission = balance_commission \+ \$1`).
			WithArgs(int64(500), "inv1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE wallets SET total_commission = total_commission \+ \$1`).
			WithArgs(int64(500), "inv1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO transactions`).WillReturnRows(timestampsRow())
		mock.ExpectCommit()

		_, err = service.Purchase(ctx, "u1", "p1")
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsufficientFundsRollsBack", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		mock.ExpectQuery(`FROM users WHERE id = \$1`).
			WillReturnRows(userRow("u1", domain.Level5, nil))
		mock.ExpectQuery(`FROM plans WHERE id = \$1`).
			WillReturnRows(planRow("p1", 10000, "2", 3, domain.Level5, true))

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM investments`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`FROM wallets WHERE user_id = \$1 FOR UPDATE`).
			WillReturnRows(walletRow("u1", 500))
		mock.ExpectExec(`UPDATE wallets SET balance = balance - \$1`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err = service.Purchase(ctx, "u1", "p1")
		assert.True(t, domain.IsKind(err, domain.ErrInsufficientFunds))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PurchaseLimitExceeded", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		mock.ExpectQuery(`FROM users WHERE id = \$1`).
			WillReturnRows(userRow("u1", domain.Level5, nil))
		mock.ExpectQuery(`FROM plans WHERE id = \$1`).
			WillReturnRows(planRow("p1", 10000, "2", 2, domain.Level5, true))

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM investments`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectRollback()

		_, err = service.Purchase(ctx, "u1", "p1")
		assert.True(t, domain.IsKind(err, domain.ErrPurchaseLimitExceeded))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsufficientLevel", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		mock.ExpectQuery(`FROM users WHERE id = \$1`).
			WillReturnRows(userRow("u1", domain.Level5, nil))
		mock.ExpectQuery(`FROM plans WHERE id = \$1`).
			WillReturnRows(planRow("p1", 10000, "2", 3, domain.Level2, true))

		_, err = service.Purchase(ctx, "u1", "p1")
		assert.True(t, domain.IsKind(err, domain.ErrInsufficientLevel))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InactivePlan", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		mock.ExpectQuery(`FROM users WHERE id = \$1`).
			WillReturnRows(userRow("u1", domain.Level5, nil))
		mock.ExpectQuery(`FROM plans WHERE id = \$1`).
			WillReturnRows(planRow("p1", 10000, "2", 3, domain.Level5, false))

		_, err = service.Purchase(ctx, "u1", "p1")
		assert.True(t, domain.IsKind(err, domain.ErrInvalidState))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvestService_Expire(t *testing.T) {
	ctx := context.Background()

	investmentColumns := []string{
		"id", "user_id", "plan_id", "amount", "profit", "total_earnings", "is_active", "expires_at", "created_at", "updated_at",
	}

	t.Run("ExpiresPastTermHolding", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM investments WHERE id = \$1 FOR UPDATE`).WithArgs("i1").
			WillReturnRows(sqlmock.NewRows(investmentColumns).
				AddRow("i1", "u1", "p1", int64(10000), "2", int64(600), true, now.Add(-time.Hour), now, now))
		mock.ExpectExec(`UPDATE investments SET is_active = false`).WithArgs("i1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, service.Expire(ctx, "i1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AlreadyInactiveIsNoop", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM investments WHERE id = \$1 FOR UPDATE`).WithArgs("i1").
			WillReturnRows(sqlmock.NewRows(investmentColumns).
				AddRow("i1", "u1", "p1", int64(10000), "2", int64(600), false, now.Add(-time.Hour), now, now))
		mock.ExpectCommit()

		require.NoError(t, service.Expire(ctx, "i1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotYetDue", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM investments WHERE id = \$1 FOR UPDATE`).WithArgs("i1").
			WillReturnRows(sqlmock.NewRows(investmentColumns).
				AddRow("i1", "u1", "p1", int64(10000), "2", int64(0), true, now.Add(time.Hour), now, now))
		mock.ExpectRollback()

		err = service.Expire(ctx, "i1")
		assert.True(t, domain.IsKind(err, domain.ErrInvalidState))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvestService_DeactivatePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM investments WHERE plan_id = \$1`).WithArgs("p1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`UPDATE plans SET is_active = false`).WithArgs("p1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, service.DeactivatePlan(ctx, "p1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RefusedWhileHoldingsActive", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM investments WHERE plan_id = \$1`).WithArgs("p1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		err = service.DeactivatePlan(ctx, "p1")
		assert.True(t, domain.IsKind(err, domain.ErrInvalidState))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvestService_SetCommissionLevels(t *testing.T) {
	ctx := context.Background()

	t.Run("UpsertsEachLevel", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		mock.ExpectExec(`INSERT INTO commission_levels`).
			WithArgs("LEVEL_1", "12", 30).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO commission_levels`).
			WithArgs("LEVEL_2", "8", 20).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = service.SetCommissionLevels(ctx, []*domain.CommissionLevel{
			{Level: domain.Level1, Percentage: decimal.NewFromInt(12), MinReferrals: 30},
			{Level: domain.Level2, Percentage: decimal.NewFromInt(8), MinReferrals: 20},
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownLevelRejected", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		err = service.SetCommissionLevels(ctx, []*domain.CommissionLevel{
			{Level: domain.UserLevel("LEVEL_9"), Percentage: decimal.NewFromInt(5)},
		})
		assert.True(t, domain.IsKind(err, domain.ErrInvalidState))
	})

	t.Run("NegativePercentageRejected", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		service := newService(db)

		err = service.SetCommissionLevels(ctx, []*domain.CommissionLevel{
			{Level: domain.Level1, Percentage: decimal.NewFromInt(-1)},
		})
		assert.True(t, domain.IsKind(err, domain.ErrInvalidAmount))
	})
}
