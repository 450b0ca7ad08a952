package transactionrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sqlc-dev/pqtype"

	"github.com/uuakee/xotc/internal/domain"
	"github.com/uuakee/xotc/internal/infrastructure/database"
)

type ITransactionRepository interface {
	Create(ctx context.Context, txn *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	// GetByIDForUpdate locks the row so callback replays serialize on it.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Transaction, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Transaction, error)
	// FindPendingForUpdate is the correlation fallback when a callback
	// carries no transaction id: the user's oldest PENDING row of the kind.
	FindPendingForUpdate(ctx context.Context, userID string, kind domain.TransactionKind) (*domain.Transaction, error)
	SetGatewayRef(ctx context.Context, id, externalID string, response json.RawMessage) error
	MarkSettled(ctx context.Context, id string, status domain.TransactionStatus, paidAt *time.Time, response json.RawMessage) error
	SetApprover(ctx context.Context, id, byUserID string) error
	ListByUserAndKind(ctx context.Context, userID string, kind domain.TransactionKind) ([]*domain.Transaction, error)
	ListByKindAndStatus(ctx context.Context, kind domain.TransactionKind, status domain.TransactionStatus) ([]*domain.Transaction, error)
	WithTx(tx *sql.Tx) ITransactionRepository
}

type transactionRepository struct {
	db database.DBTX
}

func New(db database.DBTX) ITransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) WithTx(tx *sql.Tx) ITransactionRepository {
	return &transactionRepository{db: tx}
}

const txnColumns = `id, user_id, by_user_id, plan_id, kind, status, amount, external_id,
	pix_key, pix_type, payment_method, gateway_response, created_at, updated_at, completed_at, paid_at`

func (r *transactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, by_user_id, plan_id, kind, status, amount, external_id, pix_key, pix_type, payment_method, gateway_response)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		txn.ID,
		txn.UserID,
		txn.ByUserID,
		txn.PlanID,
		txn.Kind,
		txn.Status,
		txn.AmountCents,
		txn.ExternalID,
		txn.PixKey,
		txn.PixType,
		txn.PaymentMethod,
		toNullRaw(txn.GatewayResponse),
	).Scan(&txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + txnColumns + ` FROM transactions WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *transactionRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + txnColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *transactionRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Transaction, error) {
	query := `SELECT ` + txnColumns + ` FROM transactions WHERE external_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, externalID))
}

func (r *transactionRepository) FindPendingForUpdate(ctx context.Context, userID string, kind domain.TransactionKind) (*domain.Transaction, error) {
	query := `
		SELECT ` + txnColumns + `
		FROM transactions
		WHERE user_id = $1 AND kind = $2 AND status = $3
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID, kind, domain.StatusPending))
}

func (r *transactionRepository) SetGatewayRef(ctx context.Context, id, externalID string, response json.RawMessage) error {
	query := `UPDATE transactions SET external_id = $2, gateway_response = $3, updated_at = now() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, externalID, toNullRaw(response)); err != nil {
		return fmt.Errorf("failed to set gateway reference: %w", err)
	}
	return nil
}

// MarkSettled moves a PENDING row to its terminal status. The status guard
// makes a replayed settlement affect zero rows.
func (r *transactionRepository) MarkSettled(ctx context.Context, id string, status domain.TransactionStatus, paidAt *time.Time, response json.RawMessage) error {
	query := `
		UPDATE transactions
		SET status = $2, paid_at = $3, gateway_response = COALESCE($4, gateway_response),
		    completed_at = now(), updated_at = now()
		WHERE id = $1 AND status = $5`

	result, err := r.db.ExecContext(ctx, query, id, status, paidAt, toNullRaw(response), domain.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to settle transaction: %w", err)
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

func (r *transactionRepository) SetApprover(ctx context.Context, id, byUserID string) error {
	query := `UPDATE transactions SET by_user_id = $2, updated_at = now() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, byUserID); err != nil {
		return fmt.Errorf("failed to set transaction approver: %w", err)
	}
	return nil
}

func (r *transactionRepository) ListByUserAndKind(ctx context.Context, userID string, kind domain.TransactionKind) ([]*domain.Transaction, error) {
	query := `SELECT ` + txnColumns + ` FROM transactions WHERE user_id = $1 AND kind = $2 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *transactionRepository) ListByKindAndStatus(ctx context.Context, kind domain.TransactionKind, status domain.TransactionStatus) ([]*domain.Transaction, error) {
	query := `SELECT ` + txnColumns + ` FROM transactions WHERE kind = $1 AND status = $2 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, kind, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *transactionRepository) collect(rows *sql.Rows) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction
	for rows.Next() {
		var txn domain.Transaction
		var response pqtype.NullRawMessage
		if err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&txn.ByUserID,
			&txn.PlanID,
			&txn.Kind,
			&txn.Status,
			&txn.AmountCents,
			&txn.ExternalID,
			&txn.PixKey,
			&txn.PixType,
			&txn.PaymentMethod,
			&response,
			&txn.CreatedAt,
			&txn.UpdatedAt,
			&txn.CompletedAt,
			&txn.PaidAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if response.Valid {
			txn.GatewayResponse = response.RawMessage
		}
		txns = append(txns, &txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}

func (r *transactionRepository) scanOne(row *sql.Row) (*domain.Transaction, error) {
	var txn domain.Transaction
	var response pqtype.NullRawMessage
	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.ByUserID,
		&txn.PlanID,
		&txn.Kind,
		&txn.Status,
		&txn.AmountCents,
		&txn.ExternalID,
		&txn.PixKey,
		&txn.PixType,
		&txn.PaymentMethod,
		&response,
		&txn.CreatedAt,
		&txn.UpdatedAt,
		&txn.CompletedAt,
		&txn.PaidAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	if response.Valid {
		txn.GatewayResponse = response.RawMessage
	}
	return &txn, nil
}

func toNullRaw(raw json.RawMessage) pqtype.NullRawMessage {
	if len(raw) == 0 {
		return pqtype.NullRawMessage{}
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}
}
