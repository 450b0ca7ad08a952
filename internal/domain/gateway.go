package domain

import (
	"encoding/json"
	"time"
)

// CallbackPurpose distinguishes which flow a gateway postback settles.
type CallbackPurpose string

const (
	PurposeDeposit    CallbackPurpose = "deposit"
	PurposeWithdrawal CallbackPurpose = "withdrawal"
)

// ChargeRequest asks the provider for a payable PIX instrument.
type ChargeRequest struct {
	UserID        string
	TransactionID string
	AmountCents   int64
	CustomerName  string
	CustomerCPF   string
}

// ChargeResponse is the provider's payment instrument for a deposit.
type ChargeResponse struct {
	ExternalID string `json:"id"`
	PixQRCode  string `json:"pix_qrcode"`
	PixKey     string `json:"pix_key"`
}

// TransferRequest asks the provider to pay out a withdrawal.
type TransferRequest struct {
	UserID        string
	TransactionID string
	AmountCents   int64
	PixKey        string
	PixType       PixType
}

// TransferResponse is the provider's acknowledgement of a payout instruction.
type TransferResponse struct {
	ExternalID string `json:"id"`
}

// GatewayCallback is the normalized shape of a provider postback. Metadata is
// kept raw because the provider sometimes double-encodes it as a JSON string.
type GatewayCallback struct {
	ExternalID    string          `json:"id"`
	Status        string          `json:"status"`
	AmountCents   int64           `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
	PaidAt        *time.Time      `json:"paidAt"`
	Metadata      json.RawMessage `json:"metadata"`
	Raw           json.RawMessage `json:"-"`
}

// CallbackMetadata is the correlation block we plant on every outbound
// gateway request and read back from its postback.
type CallbackMetadata struct {
	UserID        string          `json:"user_id"`
	TransactionID string          `json:"transaction_id"`
	Purpose       CallbackPurpose `json:"purpose"`
}

// DecodeMetadata tolerates both an embedded object and a JSON-string-encoded
// object, which is how the provider actually delivers it.
func (c *GatewayCallback) DecodeMetadata() (*CallbackMetadata, error) {
	if len(c.Metadata) == 0 {
		return nil, NewError(ErrInvalidState, "callback metadata missing")
	}

	raw := c.Metadata
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = []byte(asString)
	}

	var meta CallbackMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, WrapError(ErrInvalidState, "callback metadata malformed", err)
	}
	if meta.UserID == "" || meta.Purpose == "" {
		return nil, NewError(ErrInvalidState, "callback metadata incomplete")
	}
	return &meta, nil
}

// depositStatusMap translates the provider's deposit status vocabulary to the
// internal taxonomy. Unknown values deliberately fall back to PENDING.
var depositStatusMap = map[string]TransactionStatus{
	"waiting_payment": StatusPending,
	"pending":         StatusPending,
	"approved":        StatusCompleted,
	"paid":            StatusCompleted,
	"refused":         StatusRefused,
	"in_protest":      StatusDisputed,
	"refunded":        StatusRefunded,
	"cancelled":       StatusCancelled,
	"chargeback":      StatusChargeback,
}

// withdrawalStatusMap is the provider vocabulary for payout postbacks.
var withdrawalStatusMap = map[string]TransactionStatus{
	"pending":    StatusPending,
	"processing": StatusPending,
	"completed":  StatusCompleted,
	"failed":     StatusFailed,
	"cancelled":  StatusCancelled,
}

func MapDepositStatus(providerStatus string) TransactionStatus {
	if s, ok := depositStatusMap[providerStatus]; ok {
		return s
	}
	return StatusPending
}

func MapWithdrawalStatus(providerStatus string) TransactionStatus {
	if s, ok := withdrawalStatusMap[providerStatus]; ok {
		return s
	}
	return StatusPending
}
