package promotion

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPromoCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		kind    DiscountKind
		value   decimal.Decimal
		buy     int
		get     int
		wantErr string
	}{
		{name: "percentage", code: "save10", kind: DiscountPercentage, value: decimal.NewFromInt(10)},
		{name: "percentage of 100", code: "FREE", kind: DiscountPercentage, value: decimal.NewFromInt(100)},
		{name: "fixed", code: "FLAT100", kind: DiscountFixed, value: decimal.NewFromInt(100)},
		{name: "buy x get y", code: "BUY2GET1", kind: DiscountBuyXGetYFree, buy: 2, get: 1},
		{name: "empty code", code: "  ", kind: DiscountFixed, value: decimal.NewFromInt(1), wantErr: "cannot be empty"},
		{name: "bad characters", code: "SAVE 10", kind: DiscountFixed, value: decimal.NewFromInt(1), wantErr: "can only contain"},
		{name: "zero percentage", code: "P0", kind: DiscountPercentage, value: decimal.Zero, wantErr: "Percentage"},
		{name: "percentage over 100", code: "P101", kind: DiscountPercentage, value: decimal.NewFromInt(101), wantErr: "Percentage"},
		{name: "negative fixed", code: "NEG", kind: DiscountFixed, value: decimal.NewFromInt(-5), wantErr: "Fixed discount"},
		{name: "zero buy", code: "B0", kind: DiscountBuyXGetYFree, buy: 0, get: 1, wantErr: "at least 1"},
		{name: "zero get", code: "G0", kind: DiscountBuyXGetYFree, buy: 2, get: 0, wantErr: "at least 1"},
		{name: "unknown kind", code: "X", kind: DiscountKind("bogus"), value: decimal.NewFromInt(1), wantErr: "Unknown discount kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			promo, err := NewPromoCode(tt.code, tt.kind, tt.value, tt.buy, tt.get)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, NormalizeCode(tt.code), promo.Code)
			assert.True(t, promo.Active)
			assert.NotEmpty(t, promo.ID)
		})
	}
}

func TestNewPromoCode_NormalizesKindFields(t *testing.T) {
	t.Run("buy x get y drops value", func(t *testing.T) {
		promo, err := NewPromoCode("B2G1", DiscountBuyXGetYFree, decimal.NewFromInt(50), 2, 1)
		require.NoError(t, err)
		assert.True(t, promo.Value.IsZero())
	})

	t.Run("fixed drops quantities", func(t *testing.T) {
		promo, err := NewPromoCode("F5", DiscountFixed, decimal.NewFromInt(5), 2, 1)
		require.NoError(t, err)
		assert.Equal(t, 0, promo.BuyQuantity)
		assert.Equal(t, 0, promo.GetQuantity)
	})
}

func TestPromoCode_Check(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	newFlat := func() *PromoCode {
		p, err := NewFixedPromo("FLAT100", decimal.NewFromInt(100))
		require.NoError(t, err)
		require.NoError(t, p.SetMinOrderAmount(decimal.NewFromInt(1000)))
		return p
	}

	tests := []struct {
		name     string
		promo    func() *PromoCode
		subtotal int64
		expected RejectReason
	}{
		{name: "nil promo", promo: func() *PromoCode { return nil }, subtotal: 1200, expected: RejectUnknown},
		{name: "eligible", promo: newFlat, subtotal: 1200, expected: RejectNone},
		{name: "exactly minimum", promo: newFlat, subtotal: 1000, expected: RejectNone},
		{name: "below minimum", promo: newFlat, subtotal: 800, expected: RejectBelowMinimum},
		{
			name: "inactive",
			promo: func() *PromoCode {
				p := newFlat()
				p.Deactivate()
				return p
			},
			subtotal: 1200,
			expected: RejectInactive,
		},
		{
			name: "expired",
			promo: func() *PromoCode {
				p := newFlat()
				p.SetExpiresAt(&past)
				return p
			},
			subtotal: 1200,
			expected: RejectExpired,
		},
		{
			name: "expires later",
			promo: func() *PromoCode {
				p := newFlat()
				p.SetExpiresAt(&future)
				return p
			},
			subtotal: 1200,
			expected: RejectNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.promo().Check(decimal.NewFromInt(tt.subtotal), now)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPromoCode_Setters(t *testing.T) {
	p, err := NewPercentagePromo("SAVE10", decimal.NewFromInt(10))
	require.NoError(t, err)

	assert.False(t, p.HasCap())
	assert.False(t, p.HasMinimum())
	assert.Error(t, p.SetMaxDiscount(decimal.NewFromInt(-1)))
	assert.Error(t, p.SetMinOrderAmount(decimal.NewFromInt(-1)))

	require.NoError(t, p.SetMaxDiscount(decimal.NewFromInt(200)))
	require.NoError(t, p.SetMinOrderAmount(decimal.NewFromInt(100)))
	assert.True(t, p.HasCap())
	assert.True(t, p.HasMinimum())
}

func TestRejectReason_Message(t *testing.T) {
	assert.Empty(t, RejectNone.Message())
	assert.Equal(t, "Promo code not found", RejectUnknown.Message())
	assert.Contains(t, RejectBelowMinimum.Message(), "minimum")
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "BUY2GET1", NormalizeCode("  buy2get1 "))
}
