package domain

import "time"

// UserLevel is the ordered eligibility tier. Lower ordinal means more
// privileged: LEVEL_1 outranks LEVEL_5.
type UserLevel string

const (
	Level1 UserLevel = "LEVEL_1"
	Level2 UserLevel = "LEVEL_2"
	Level3 UserLevel = "LEVEL_3"
	Level4 UserLevel = "LEVEL_4"
	Level5 UserLevel = "LEVEL_5"
)

var levelOrdinals = map[UserLevel]int{
	Level1: 1,
	Level2: 2,
	Level3: 3,
	Level4: 4,
	Level5: 5,
}

// Ordinal returns the numeric rank of the level. Unknown levels rank as
// LEVEL_5, the least privileged tier.
func (l UserLevel) Ordinal() int {
	if v, ok := levelOrdinals[l]; ok {
		return v
	}
	return 5
}

// CanAccess reports whether a user at this level may purchase a plan gated at
// required.
func (l UserLevel) CanAccess(required UserLevel) bool {
	return l.Ordinal() <= required.Ordinal()
}

// Valid reports whether the level is one of the defined tiers.
func (l UserLevel) Valid() bool {
	_, ok := levelOrdinals[l]
	return ok
}

type User struct {
	ID            string     `json:"id" db:"id"`
	RealName      string     `json:"real_name" db:"real_name"`
	Phone         string     `json:"phone" db:"phone"`
	CPF           string     `json:"cpf" db:"cpf"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	IsAdmin       bool       `json:"is_admin" db:"is_admin"`
	Level         UserLevel  `json:"level" db:"level"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	ReferralCode  string     `json:"referral_code" db:"referral_code"`
	InvitedByID   *string    `json:"invited_by_id,omitempty" db:"invited_by_id"`
	ReferralCount int        `json:"referral_count" db:"referral_count"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}
