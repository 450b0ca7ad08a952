package domain

import "time"

// SubAccount names a spendable balance bucket inside a wallet.
type SubAccount string

const (
	SubAccountBalance    SubAccount = "balance"
	SubAccountWithdrawal SubAccount = "balance_withdrawal"
	SubAccountCommission SubAccount = "balance_commission"
)

// Counter names a cumulative, monotonically tracked wallet total. Counters
// are bookkeeping only and never gate debits.
type Counter string

const (
	CounterInvestment Counter = "total_investment"
	CounterCommission Counter = "total_commission"
	CounterDeposit    Counter = "total_deposit"
	CounterWithdrawal Counter = "total_withdrawal"
)

type Wallet struct {
	ID                     string    `json:"id" db:"id"`
	UserID                 string    `json:"user_id" db:"user_id"`
	BalanceCents           int64     `json:"balance_cents" db:"balance"`
	BalanceWithdrawalCents int64     `json:"balance_withdrawal_cents" db:"balance_withdrawal"`
	BalanceCommissionCents int64     `json:"balance_commission_cents" db:"balance_commission"`
	TotalInvestmentCents   int64     `json:"total_investment_cents" db:"total_investment"`
	TotalCommissionCents   int64     `json:"total_commission_cents" db:"total_commission"`
	TotalDepositCents      int64     `json:"total_deposit_cents" db:"total_deposit"`
	TotalWithdrawalCents   int64     `json:"total_withdrawal_cents" db:"total_withdrawal"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time `json:"updated_at" db:"updated_at"`
}

// SubAccountBalance returns the current amount held in the given sub-account.
func (w *Wallet) SubAccountBalance(sub SubAccount) int64 {
	switch sub {
	case SubAccountBalance:
		return w.BalanceCents
	case SubAccountWithdrawal:
		return w.BalanceWithdrawalCents
	case SubAccountCommission:
		return w.BalanceCommissionCents
	}
	return 0
}
