package domain

import "time"

// LedgerEvent is a real-time notification pushed to websocket subscribers
// when money moves. Best-effort only; never part of the atomic unit.
type LedgerEvent struct {
	Type          string    `json:"type"`
	UserID        string    `json:"user_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	InvestmentID  string    `json:"investment_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	AmountCents   int64     `json:"amount_cents,omitempty"`
	Message       string    `json:"message,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
