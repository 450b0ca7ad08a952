package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		rate   string
		want   int64
	}{
		{"whole percent", 10000, "10", 1000},
		{"fractional rate", 10000, "0.5", 50},
		{"rounds half up", 333, "0.5", 2},
		{"rounds down below half", 100, "0.4", 0},
		{"zero rate", 10000, "0", 0},
		{"large amount", 5000000, "7", 350000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := decimal.NewFromString(tt.rate)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, Percent(tt.amount, rate))
		})
	}
}

func TestReaisConversion(t *testing.T) {
	assert.Equal(t, int64(12345), FromReais(decimal.NewFromFloat(123.45)))
	assert.Equal(t, "123.45", ToReais(12345).StringFixed(2))
	assert.Equal(t, int64(100), FromReais(ToReais(100)))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "R$10.00", Format(1000))
	assert.Equal(t, "R$0.01", Format(1))
}
