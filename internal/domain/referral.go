package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Referral records that UserID was invited by InvitedByID. Created once at
// registration, never mutated.
type Referral struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	InvitedByID string    `json:"invited_by_id" db:"invited_by_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CommissionLevel configures the single-hop referral commission for inviters
// at a given eligibility level. MinReferrals is informational and not
// enforced by the cascade.
type CommissionLevel struct {
	Level        UserLevel       `json:"level" db:"level"`
	Percentage   decimal.Decimal `json:"percentage" db:"percentage"`
	MinReferrals int             `json:"min_referrals" db:"min_referrals"`
}
