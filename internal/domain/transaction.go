package domain

import (
	"encoding/json"
	"time"
)

type TransactionKind string

const (
	KindDeposit    TransactionKind = "DEPOSIT"
	KindWithdrawal TransactionKind = "WITHDRAWAL"
	KindInvestment TransactionKind = "INVESTMENT"
	KindCommission TransactionKind = "COMMISSION"
)

type TransactionStatus string

const (
	StatusPending    TransactionStatus = "PENDING"
	StatusCompleted  TransactionStatus = "COMPLETED"
	StatusRefused    TransactionStatus = "REFUSED"
	StatusDisputed   TransactionStatus = "DISPUTED"
	StatusRefunded   TransactionStatus = "REFUNDED"
	StatusCancelled  TransactionStatus = "CANCELLED"
	StatusChargeback TransactionStatus = "CHARGEBACK"
	StatusFailed     TransactionStatus = "FAILED"
)

// Terminal reports whether the status may never change again. PENDING rows
// are mutated at most once by a callback or admin action; everything else is
// immutable.
func (s TransactionStatus) Terminal() bool {
	return s != StatusPending
}

// PixType is the kind of payout destination key a withdrawal is sent to.
type PixType string

const (
	PixTypeCPF    PixType = "CPF"
	PixTypePhone  PixType = "PHONE"
	PixTypeEmail  PixType = "EMAIL"
	PixTypeRandom PixType = "RANDOM"
)

// Transaction is the append-only record of a balance-affecting event.
// ByUserID carries the counterparty: the purchaser on a COMMISSION row, the
// approving admin on an approved WITHDRAWAL.
type Transaction struct {
	ID              string            `json:"id" db:"id"`
	UserID          string            `json:"user_id" db:"user_id"`
	ByUserID        *string           `json:"by_user_id,omitempty" db:"by_user_id"`
	PlanID          *string           `json:"plan_id,omitempty" db:"plan_id"`
	Kind            TransactionKind   `json:"kind" db:"kind"`
	Status          TransactionStatus `json:"status" db:"status"`
	AmountCents     int64             `json:"amount_cents" db:"amount"`
	ExternalID      *string           `json:"external_id,omitempty" db:"external_id"`
	PixKey          *string           `json:"pix_key,omitempty" db:"pix_key"`
	PixType         *PixType          `json:"pix_type,omitempty" db:"pix_type"`
	PaymentMethod   *string           `json:"payment_method,omitempty" db:"payment_method"`
	GatewayResponse json.RawMessage   `json:"gateway_response,omitempty" db:"gateway_response"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
	PaidAt          *time.Time        `json:"paid_at,omitempty" db:"paid_at"`
}
