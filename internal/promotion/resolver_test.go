package promotion

import (
	"testing"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(t time.Time) *time.Time { return &t }

func product(price, promo string, on bool, start, end *time.Time) *models.Product {
	p := &models.Product{
		Price:              decimal.RequireFromString(price),
		IsOnPromotion:      on,
		PromotionStartDate: start,
		PromotionEndDate:   end,
	}
	if promo != "" {
		p.PromotionPrice = decimal.NewNullDecimal(decimal.RequireFromString(promo))
	}
	return p
}

func TestEffectivePrice(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(-24 * time.Hour)
	end := now.Add(24 * time.Hour)

	tests := []struct {
		name string
		p    *models.Product
		at   time.Time
		want string
	}{
		{"active window", product("100", "80", true, &start, &end), now, "80"},
		{"flag off", product("100", "80", false, &start, &end), now, "100"},
		{"no promotion price", product("100", "", true, &start, &end), now, "100"},
		{"promotion not cheaper", product("100", "100", true, &start, &end), now, "100"},
		{"before start", product("100", "80", true, &start, &end), start.Add(-time.Second), "100"},
		{"exactly at start", product("100", "80", true, &start, &end), start, "80"},
		{"exactly at end", product("100", "80", true, &start, &end), end, "100"},
		{"just before end", product("100", "80", true, &start, &end), end.Add(-time.Nanosecond), "80"},
		{"missing start", product("100", "80", true, nil, &end), now, "80"},
		{"missing end", product("100", "80", true, &start, nil), now, "100"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := EffectivePrice(tt.p, tt.at)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestResolve_Variant(t *testing.T) {
	t.Parallel()

	now := time.Now()
	end := now.Add(time.Hour)

	ap, ok := Resolve(product("50", "40", true, nil, &end), now).(ActivePromotion)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(40).Equal(ap.Price))
	assert.Equal(t, end, ap.End)
	assert.Nil(t, ap.Start)

	_, ok = Resolve(product("50", "40", true, nil, ptr(now.Add(-time.Hour))), now).(NoPromotion)
	assert.True(t, ok)
	assert.False(t, IsActive(nil, now))
}

func TestDiscountFraction(t *testing.T) {
	t.Parallel()

	now := time.Now()
	end := now.Add(time.Hour)

	assert.InDelta(t, 0.2, DiscountFraction(product("100", "80", true, nil, &end), now), 1e-9)
	assert.Zero(t, DiscountFraction(product("100", "80", false, nil, &end), now))
	assert.Zero(t, DiscountFraction(product("100", "80", true, nil, &end), end))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	now := time.Now()
	base := decimal.NewFromInt(100)
	price := func(s string) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.RequireFromString(s)) }

	tests := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{"disabled", Settings{}, false},
		{"valid", Settings{IsOnPromotion: true, Price: price("80"), Start: ptr(now), End: ptr(now.Add(time.Hour))}, false},
		{"valid without start", Settings{IsOnPromotion: true, Price: price("80"), End: ptr(now.Add(time.Hour))}, false},
		{"missing price", Settings{IsOnPromotion: true, End: ptr(now.Add(time.Hour))}, true},
		{"price not below base", Settings{IsOnPromotion: true, Price: price("100"), End: ptr(now.Add(time.Hour))}, true},
		{"non-positive price", Settings{IsOnPromotion: true, Price: price("0"), End: ptr(now.Add(time.Hour))}, true},
		{"missing end", Settings{IsOnPromotion: true, Price: price("80")}, true},
		{"end before start", Settings{IsOnPromotion: true, Price: price("80"), Start: ptr(now), End: ptr(now.Add(-time.Hour))}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(base, tt.s)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}
