package investmentrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/uuakee/xotc/internal/domain"
	"github.com/uuakee/xotc/internal/infrastructure/database"
)

// ErrDuplicateScheduled is returned by CreateEarning when the investment
// already carries a SCHEDULED installment. Backed by a partial unique index,
// so concurrent schedulers cannot double-book a period.
var ErrDuplicateScheduled = errors.New("investment already has a scheduled earning")

type IInvestmentRepository interface {
	Create(ctx context.Context, investment *domain.Investment) error
	GetByID(ctx context.Context, id string) (*domain.Investment, error)
	// GetByIDForUpdate locks the investment row for the scheduler's
	// pay-or-invalidate decision.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Investment, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Investment, error)
	CountActiveByUserAndPlan(ctx context.Context, userID, planID string) (int, error)
	CountActiveByPlan(ctx context.Context, planID string) (int, error)
	Deactivate(ctx context.Context, id string) error
	AddEarnings(ctx context.Context, id string, amountCents int64) error

	CreateEarning(ctx context.Context, earning *domain.InvestmentEarning) error
	ListScheduledDue(ctx context.Context, limit int) ([]*domain.InvestmentEarning, error)
	GetScheduledByInvestment(ctx context.Context, investmentID string) (*domain.InvestmentEarning, error)
	MarkEarningPaid(ctx context.Context, id string) error
	MarkEarningUnvalidated(ctx context.Context, id string) error
	WithTx(tx *sql.Tx) IInvestmentRepository
}

type investmentRepository struct {
	db database.DBTX
}

func New(db database.DBTX) IInvestmentRepository {
	return &investmentRepository{db: db}
}

func (r *investmentRepository) WithTx(tx *sql.Tx) IInvestmentRepository {
	return &investmentRepository{db: tx}
}

const investmentColumns = `id, user_id, plan_id, amount, profit, total_earnings, is_active, expires_at, created_at, updated_at`

func (r *investmentRepository) Create(ctx context.Context, investment *domain.Investment) error {
	query := `
		INSERT INTO investments (id, user_id, plan_id, amount, profit, is_active, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		investment.ID,
		investment.UserID,
		investment.PlanID,
		investment.AmountCents,
		investment.ProfitPct,
		investment.IsActive,
		investment.ExpiresAt,
	).Scan(&investment.CreatedAt, &investment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create investment: %w", err)
	}
	return nil
}

func (r *investmentRepository) GetByID(ctx context.Context, id string) (*domain.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *investmentRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *investmentRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	defer rows.Close()

	var investments []*domain.Investment
	for rows.Next() {
		var inv domain.Investment
		if err := r.scanInto(rows, &inv); err != nil {
			return nil, err
		}
		investments = append(investments, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate investments: %w", err)
	}
	return investments, nil
}

func (r *investmentRepository) CountActiveByUserAndPlan(ctx context.Context, userID, planID string) (int, error) {
	query := `SELECT COUNT(*) FROM investments WHERE user_id = $1 AND plan_id = $2 AND is_active = true`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, planID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active investments: %w", err)
	}
	return count, nil
}

func (r *investmentRepository) CountActiveByPlan(ctx context.Context, planID string) (int, error) {
	query := `SELECT COUNT(*) FROM investments WHERE plan_id = $1 AND is_active = true`

	var count int
	if err := r.db.QueryRowContext(ctx, query, planID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active investments for plan: %w", err)
	}
	return count, nil
}

func (r *investmentRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE investments SET is_active = false, updated_at = now() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to deactivate investment: %w", err)
	}
	return nil
}

func (r *investmentRepository) AddEarnings(ctx context.Context, id string, amountCents int64) error {
	query := `UPDATE investments SET total_earnings = total_earnings + $1, updated_at = now() WHERE id = $2`

	if _, err := r.db.ExecContext(ctx, query, amountCents, id); err != nil {
		return fmt.Errorf("failed to accumulate investment earnings: %w", err)
	}
	return nil
}

const earningColumns = `id, investment_id, user_id, plan_id, amount, status, paid_at, created_at`

func (r *investmentRepository) CreateEarning(ctx context.Context, earning *domain.InvestmentEarning) error {
	query := `
		INSERT INTO investment_earnings (id, investment_id, user_id, plan_id, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		earning.ID,
		earning.InvestmentID,
		earning.UserID,
		earning.PlanID,
		earning.AmountCents,
		earning.Status,
	).Scan(&earning.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateScheduled
		}
		return fmt.Errorf("failed to create earning: %w", err)
	}
	return nil
}

// ListScheduledDue returns SCHEDULED installments old enough to pay, oldest
// first, skipping rows another scheduler run already holds locked.
func (r *investmentRepository) ListScheduledDue(ctx context.Context, limit int) ([]*domain.InvestmentEarning, error) {
	query := `
		SELECT ` + earningColumns + `
		FROM investment_earnings
		WHERE status = $1 AND created_at <= now() - interval '24 hours'
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, domain.EarningScheduled, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled earnings: %w", err)
	}
	defer rows.Close()

	var earnings []*domain.InvestmentEarning
	for rows.Next() {
		var e domain.InvestmentEarning
		if err := rows.Scan(&e.ID, &e.InvestmentID, &e.UserID, &e.PlanID, &e.AmountCents, &e.Status, &e.PaidAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan earning: %w", err)
		}
		earnings = append(earnings, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate earnings: %w", err)
	}
	return earnings, nil
}

func (r *investmentRepository) GetScheduledByInvestment(ctx context.Context, investmentID string) (*domain.InvestmentEarning, error) {
	query := `SELECT ` + earningColumns + ` FROM investment_earnings WHERE investment_id = $1 AND status = $2`

	var e domain.InvestmentEarning
	err := r.db.QueryRowContext(ctx, query, investmentID, domain.EarningScheduled).
		Scan(&e.ID, &e.InvestmentID, &e.UserID, &e.PlanID, &e.AmountCents, &e.Status, &e.PaidAt, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan earning: %w", err)
	}
	return &e, nil
}

func (r *investmentRepository) MarkEarningPaid(ctx context.Context, id string) error {
	return r.markEarning(ctx, id, domain.EarningPaid, true)
}

func (r *investmentRepository) MarkEarningUnvalidated(ctx context.Context, id string) error {
	return r.markEarning(ctx, id, domain.EarningUnvalidated, false)
}

// markEarning only transitions rows still SCHEDULED, so a replayed run is a
// no-op rather than a double payment.
func (r *investmentRepository) markEarning(ctx context.Context, id string, status domain.EarningStatus, setPaidAt bool) error {
	query := `UPDATE investment_earnings SET status = $2 WHERE id = $1 AND status = $3`
	if setPaidAt {
		query = `UPDATE investment_earnings SET status = $2, paid_at = now() WHERE id = $1 AND status = $3`
	}

	result, err := r.db.ExecContext(ctx, query, id, status, domain.EarningScheduled)
	if err != nil {
		return fmt.Errorf("failed to mark earning %s: %w", status, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *investmentRepository) scanOne(row *sql.Row) (*domain.Investment, error) {
	var inv domain.Investment
	err := row.Scan(
		&inv.ID,
		&inv.UserID,
		&inv.PlanID,
		&inv.AmountCents,
		&inv.ProfitPct,
		&inv.TotalEarningsCents,
		&inv.IsActive,
		&inv.ExpiresAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan investment: %w", err)
	}
	return &inv, nil
}

func (r *investmentRepository) scanInto(rows *sql.Rows, inv *domain.Investment) error {
	if err := rows.Scan(
		&inv.ID,
		&inv.UserID,
		&inv.PlanID,
		&inv.AmountCents,
		&inv.ProfitPct,
		&inv.TotalEarningsCents,
		&inv.IsActive,
		&inv.ExpiresAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to scan investment: %w", err)
	}
	return nil
}
