package walletrepo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uuakee/xotc/internal/domain"
	"github.com/uuakee/xotc/internal/infrastructure/database"
)

type IWalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)
	// GetByUserIDForUpdate takes a row lock on the wallet. Only meaningful
	// when the repository is bound to a transaction through WithTx.
	GetByUserIDForUpdate(ctx context.Context, userID string) (*domain.Wallet, error)
	Credit(ctx context.Context, userID string, sub domain.SubAccount, amountCents int64) error
	// Debit decrements the sub-account only when it still holds at least
	// amountCents; returns false if the guard rejected the update.
	Debit(ctx context.Context, userID string, sub domain.SubAccount, amountCents int64) (bool, error)
	AddCounter(ctx context.Context, userID string, counter domain.Counter, amountCents int64) error
	WithTx(tx *sql.Tx) IWalletRepository
}

type walletRepository struct {
	db database.DBTX
}

func New(db database.DBTX) IWalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) WithTx(tx *sql.Tx) IWalletRepository {
	return &walletRepository{db: tx}
}

var subColumns = map[domain.SubAccount]string{
	domain.SubAccountBalance:    "balance",
	domain.SubAccountWithdrawal: "balance_withdrawal",
	domain.SubAccountCommission: "balance_commission",
}

var counterColumns = map[domain.Counter]string{
	domain.CounterInvestment: "total_investment",
	domain.CounterCommission: "total_commission",
	domain.CounterDeposit:    "total_deposit",
	domain.CounterWithdrawal: "total_withdrawal",
}

const walletColumns = `id, user_id, balance, balance_withdrawal, balance_commission,
	total_investment, total_commission, total_deposit, total_withdrawal, created_at, updated_at`

func (r *walletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	query := `
		INSERT INTO wallets (id, user_id)
		VALUES ($1, $2)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, wallet.ID, wallet.UserID).
		Scan(&wallet.CreatedAt, &wallet.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID))
}

func (r *walletRepository) GetByUserIDForUpdate(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID))
}

func (r *walletRepository) Credit(ctx context.Context, userID string, sub domain.SubAccount, amountCents int64) error {
	column, ok := subColumns[sub]
	if !ok {
		return fmt.Errorf("unknown sub-account: %s", sub)
	}

	query := fmt.Sprintf(`UPDATE wallets SET %s = %s + $1, updated_at = now() WHERE user_id = $2`, column, column)

	result, err := r.db.ExecContext(ctx, query, amountCents, userID)
	if err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
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

func (r *walletRepository) Debit(ctx context.Context, userID string, sub domain.SubAccount, amountCents int64) (bool, error) {
	column, ok := subColumns[sub]
	if !ok {
		return false, fmt.Errorf("unknown sub-account: %s", sub)
	}

	query := fmt.Sprintf(`
		UPDATE wallets SET %s = %s - $1, updated_at = now()
		WHERE user_id = $2 AND %s >= $1`, column, column, column)

	result, err := r.db.ExecContext(ctx, query, amountCents, userID)
	if err != nil {
		return false, fmt.Errorf("failed to debit wallet: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows > 0, nil
}

func (r *walletRepository) AddCounter(ctx context.Context, userID string, counter domain.Counter, amountCents int64) error {
	column, ok := counterColumns[counter]
	if !ok {
		return fmt.Errorf("unknown counter: %s", counter)
	}

	query := fmt.Sprintf(`UPDATE wallets SET %s = %s + $1, updated_at = now() WHERE user_id = $2`, column, column)

	if _, err := r.db.ExecContext(ctx, query, amountCents, userID); err != nil {
		return fmt.Errorf("failed to update wallet counter: %w", err)
	}
	return nil
}

func (r *walletRepository) scanOne(row *sql.Row) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := row.Scan(
		&wallet.ID,
		&wallet.UserID,
		&wallet.BalanceCents,
		&wallet.BalanceWithdrawalCents,
		&wallet.BalanceCommissionCents,
		&wallet.TotalInvestmentCents,
		&wallet.TotalCommissionCents,
		&wallet.TotalDepositCents,
		&wallet.TotalWithdrawalCents,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}
	return &wallet, nil
}
