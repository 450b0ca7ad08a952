package domain

import "time"

// EarningStatus is the lifecycle state of one payout period.
type EarningStatus string

const (
	// EarningScheduled is a pending, not yet paid installment. Exactly one
	// SCHEDULED row exists per active investment.
	EarningScheduled EarningStatus = "SCHEDULED"
	// EarningPaid has been credited to the wallet.
	EarningPaid EarningStatus = "PAID"
	// EarningUnvalidated is terminal: the owning investment was gone or
	// inactive when the scheduler reached this row. Never re-processed.
	EarningUnvalidated EarningStatus = "UNVALIDATED"
)

type InvestmentEarning struct {
	ID           string        `json:"id" db:"id"`
	InvestmentID string        `json:"investment_id" db:"investment_id"`
	UserID       string        `json:"user_id" db:"user_id"`
	PlanID       string        `json:"plan_id" db:"plan_id"`
	AmountCents  int64         `json:"amount_cents" db:"amount"`
	Status       EarningStatus `json:"status" db:"status"`
	PaidAt       *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}
