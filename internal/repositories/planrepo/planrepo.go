package planrepo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uuakee/xotc/internal/domain"
	"github.com/uuakee/xotc/internal/infrastructure/database"
)

type IPlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) error
	Update(ctx context.Context, plan *domain.Plan) error
	Deactivate(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Plan, error)
	// List returns plans ordered by price; activeOnly hides deactivated
	// products from the public catalog.
	List(ctx context.Context, activeOnly bool) ([]*domain.Plan, error)
	WithTx(tx *sql.Tx) IPlanRepository
}

type planRepository struct {
	db database.DBTX
}

func New(db database.DBTX) IPlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) WithTx(tx *sql.Tx) IPlanRepository {
	return &planRepository{db: tx}
}

const planColumns = `id, name, price, days, profit, max_buy, level, is_active, created_at, updated_at`

func (r *planRepository) Create(ctx context.Context, plan *domain.Plan) error {
	query := `
		INSERT INTO plans (id, name, price, days, profit, max_buy, level, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		plan.ID,
		plan.Name,
		plan.PriceCents,
		plan.Days,
		plan.ProfitPct,
		plan.MaxBuy,
		plan.Level,
		plan.IsActive,
	).Scan(&plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

func (r *planRepository) Update(ctx context.Context, plan *domain.Plan) error {
	query := `
		UPDATE plans
		SET name = $2, price = $3, days = $4, profit = $5, max_buy = $6, level = $7, is_active = $8, updated_at = now()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		plan.ID,
		plan.Name,
		plan.PriceCents,
		plan.Days,
		plan.ProfitPct,
		plan.MaxBuy,
		plan.Level,
		plan.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
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

func (r *planRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE plans SET is_active = false, updated_at = now() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate plan: %w", err)
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

func (r *planRepository) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`

	var plan domain.Plan
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&plan.ID,
		&plan.Name,
		&plan.PriceCents,
		&plan.Days,
		&plan.ProfitPct,
		&plan.MaxBuy,
		&plan.Level,
		&plan.IsActive,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan plan: %w", err)
	}
	return &plan, nil
}

func (r *planRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY price ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*domain.Plan
	for rows.Next() {
		var plan domain.Plan
		if err := rows.Scan(
			&plan.ID,
			&plan.Name,
			&plan.PriceCents,
			&plan.Days,
			&plan.ProfitPct,
			&plan.MaxBuy,
			&plan.Level,
			&plan.IsActive,
			&plan.CreatedAt,
			&plan.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, &plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plans: %w", err)
	}
	return plans, nil
}
