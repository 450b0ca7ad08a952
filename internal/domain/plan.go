package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is an investment product. ProfitPct is the percentage of the price
// paid out per earning period. Deactivated plans stay readable for history
// but cannot be purchased.
type Plan struct {
	ID         string          `json:"id" db:"id"`
	Name       string          `json:"name" db:"name"`
	PriceCents int64           `json:"price_cents" db:"price"`
	Days       int             `json:"days" db:"days"`
	ProfitPct  decimal.Decimal `json:"profit_pct" db:"profit"`
	MaxBuy     int             `json:"max_buy" db:"max_buy"`
	Level      UserLevel       `json:"level" db:"level"`
	IsActive   bool            `json:"is_active" db:"is_active"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}
