package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserLevelCanAccess(t *testing.T) {
	assert.True(t, Level1.CanAccess(Level5))
	assert.True(t, Level3.CanAccess(Level3))
	assert.False(t, Level5.CanAccess(Level1))

	// unknown levels rank as the least privileged tier
	assert.Equal(t, 5, UserLevel("LEVEL_99").Ordinal())
	assert.True(t, Level5.CanAccess(UserLevel("LEVEL_99")))
}

func TestMapDepositStatus(t *testing.T) {
	tests := []struct {
		provider string
		want     TransactionStatus
	}{
		{"waiting_payment", StatusPending},
		{"pending", StatusPending},
		{"approved", StatusCompleted},
		{"paid", StatusCompleted},
		{"refused", StatusRefused},
		{"in_protest", StatusDisputed},
		{"refunded", StatusRefunded},
		{"cancelled", StatusCancelled},
		{"chargeback", StatusChargeback},
		{"something_new", StatusPending},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MapDepositStatus(tt.provider), "provider status %q", tt.provider)
	}
}

func TestMapWithdrawalStatus(t *testing.T) {
	assert.Equal(t, StatusPending, MapWithdrawalStatus("pending"))
	assert.Equal(t, StatusPending, MapWithdrawalStatus("processing"))
	assert.Equal(t, StatusCompleted, MapWithdrawalStatus("completed"))
	assert.Equal(t, StatusFailed, MapWithdrawalStatus("failed"))
	assert.Equal(t, StatusCancelled, MapWithdrawalStatus("cancelled"))
	assert.Equal(t, StatusPending, MapWithdrawalStatus("unheard_of"))
}

func TestTransactionStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusChargeback.Terminal())
}

func TestDecodeMetadata(t *testing.T) {
	t.Run("embedded object", func(t *testing.T) {
		cb := &GatewayCallback{
			Metadata: json.RawMessage(`{"user_id":"u1","transaction_id":"t1","purpose":"deposit"}`),
		}
		meta, err := cb.DecodeMetadata()
		require.NoError(t, err)
		assert.Equal(t, "u1", meta.UserID)
		assert.Equal(t, "t1", meta.TransactionID)
		assert.Equal(t, PurposeDeposit, meta.Purpose)
	})

	t.Run("double encoded string", func(t *testing.T) {
		cb := &GatewayCallback{
			Metadata: json.RawMessage(`"{\"user_id\":\"u2\",\"transaction_id\":\"t2\",\"purpose\":\"withdrawal\"}"`),
		}
		meta, err := cb.DecodeMetadata()
		require.NoError(t, err)
		assert.Equal(t, "u2", meta.UserID)
		assert.Equal(t, PurposeWithdrawal, meta.Purpose)
	})

	t.Run("missing metadata", func(t *testing.T) {
		cb := &GatewayCallback{}
		_, err := cb.DecodeMetadata()
		assert.True(t, IsKind(err, ErrInvalidState))
	})
}

func TestErrorKinds(t *testing.T) {
	base := NewError(ErrInsufficientFunds, "insufficient funds")
	assert.Equal(t, ErrInsufficientFunds, KindOf(base))
	assert.True(t, IsKind(base, ErrInsufficientFunds))

	wrapped := WrapError(ErrGateway, "charge failed", errors.New("boom"))
	assert.Equal(t, ErrGateway, KindOf(wrapped))
	assert.EqualError(t, wrapped, "charge failed: boom")

	assert.Equal(t, ErrInternal, KindOf(errors.New("untyped")))
}
