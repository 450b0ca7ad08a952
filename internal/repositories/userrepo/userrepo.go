package userrepo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uuakee/xotc/internal/domain"
	"github.com/uuakee/xotc/internal/infrastructure/database"
)

type IUserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByReferralCode(ctx context.Context, code string) (*domain.User, error)
	ExistsByCPFOrPhone(ctx context.Context, cpf, phone string) (bool, error)
	IncrementReferralCount(ctx context.Context, id string) error
	UpdateLastLogin(ctx context.Context, id string) error
	WithTx(tx *sql.Tx) IUserRepository
}

type userRepository struct {
	db database.DBTX
}

func New(db database.DBTX) IUserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *sql.Tx) IUserRepository {
	return &userRepository{db: tx}
}

const userColumns = `id, real_name, phone, cpf, password_hash, is_admin, level, is_active,
	referral_code, invited_by_id, referral_count, last_login_at, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, real_name, phone, cpf, password_hash, is_admin, level, is_active, referral_code, invited_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.RealName,
		user.Phone,
		user.CPF,
		user.PasswordHash,
		user.IsAdmin,
		user.Level,
		user.IsActive,
		user.ReferralCode,
		user.InvitedByID,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, phone))
}

func (r *userRepository) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE referral_code = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, code))
}

func (r *userRepository) ExistsByCPFOrPhone(ctx context.Context, cpf, phone string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE cpf = $1 OR phone = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, cpf, phone).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

func (r *userRepository) IncrementReferralCount(ctx context.Context, id string) error {
	query := `UPDATE users SET referral_count = referral_count + 1, updated_at = now() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment referral count: %w", err)
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

func (r *userRepository) UpdateLastLogin(ctx context.Context, id string) error {
	query := `UPDATE users SET last_login_at = now(), updated_at = now() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func (r *userRepository) scanOne(row *sql.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.RealName,
		&user.Phone,
		&user.CPF,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.Level,
		&user.IsActive,
		&user.ReferralCode,
		&user.InvitedByID,
		&user.ReferralCount,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}
