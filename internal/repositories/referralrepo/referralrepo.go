package referralrepo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uuakee/xotc/internal/domain"
	"github.com/uuakee/xotc/internal/infrastructure/database"
)

type IReferralRepository interface {
	CreateReferral(ctx context.Context, referral *domain.Referral) error
	ListByInviter(ctx context.Context, inviterID string) ([]*domain.Referral, error)
	CountByInviter(ctx context.Context, inviterID string) (int, error)
	GetCommissionLevel(ctx context.Context, level domain.UserLevel) (*domain.CommissionLevel, error)
	UpsertCommissionLevel(ctx context.Context, cl *domain.CommissionLevel) error
	WithTx(tx *sql.Tx) IReferralRepository
}

type referralRepository struct {
	db database.DBTX
}

func New(db database.DBTX) IReferralRepository {
	return &referralRepository{db: db}
}

func (r *referralRepository) WithTx(tx *sql.Tx) IReferralRepository {
	return &referralRepository{db: tx}
}

func (r *referralRepository) CreateReferral(ctx context.Context, referral *domain.Referral) error {
	query := `
		INSERT INTO referrals (id, user_id, invited_by_id)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, referral.ID, referral.UserID, referral.InvitedByID).
		Scan(&referral.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create referral: %w", err)
	}
	return nil
}

func (r *referralRepository) ListByInviter(ctx context.Context, inviterID string) ([]*domain.Referral, error) {
	query := `SELECT id, user_id, invited_by_id, created_at FROM referrals WHERE invited_by_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, inviterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	defer rows.Close()

	var referrals []*domain.Referral
	for rows.Next() {
		var ref domain.Referral
		if err := rows.Scan(&ref.ID, &ref.UserID, &ref.InvitedByID, &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		referrals = append(referrals, &ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate referrals: %w", err)
	}
	return referrals, nil
}

func (r *referralRepository) CountByInviter(ctx context.Context, inviterID string) (int, error) {
	query := `SELECT COUNT(*) FROM referrals WHERE invited_by_id = $1`

	var count int
	if err := r.db.QueryRowContext(ctx, query, inviterID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return count, nil
}

func (r *referralRepository) GetCommissionLevel(ctx context.Context, level domain.UserLevel) (*domain.CommissionLevel, error) {
	query := `SELECT level, percentage, min_referrals FROM commission_levels WHERE level = $1`

	var cl domain.CommissionLevel
	err := r.db.QueryRowContext(ctx, query, level).Scan(&cl.Level, &cl.Percentage, &cl.MinReferrals)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan commission level: %w", err)
	}
	return &cl, nil
}

func (r *referralRepository) UpsertCommissionLevel(ctx context.Context, cl *domain.CommissionLevel) error {
	query := `
		INSERT INTO commission_levels (level, percentage, min_referrals)
		VALUES ($1, $2, $3)
		ON CONFLICT (level) DO UPDATE SET percentage = EXCLUDED.percentage, min_referrals = EXCLUDED.min_referrals`

	if _, err := r.db.ExecContext(ctx, query, cl.Level, cl.Percentage, cl.MinReferrals); err != nil {
		return fmt.Errorf("failed to upsert commission level: %w", err)
	}
	return nil
}
