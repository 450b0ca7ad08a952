package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Investment is a user's holding of a plan. Price and profit rate are
// snapshotted at purchase time so later plan edits never change what an
// existing holding pays.
type Investment struct {
	ID                 string          `json:"id" db:"id"`
	UserID             string          `json:"user_id" db:"user_id"`
	PlanID             string          `json:"plan_id" db:"plan_id"`
	AmountCents        int64           `json:"amount_cents" db:"amount"`
	ProfitPct          decimal.Decimal `json:"profit_pct" db:"profit"`
	TotalEarningsCents int64           `json:"total_earnings_cents" db:"total_earnings"`
	IsActive           bool            `json:"is_active" db:"is_active"`
	ExpiresAt          time.Time       `json:"expires_at" db:"expires_at"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// Expired reports whether the holding's term has passed at the given instant.
func (i *Investment) Expired(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}
