package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
)

type mockCouponRepo struct {
	rule          *Rule
	err           error
	incrementErr  error
	incrementCode string
	lookedUpCode  string
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*Rule, error) {
	m.lookedUpCode = code
	if m.err != nil {
		return nil, m.err
	}
	return m.rule, nil
}

func (m *mockCouponRepo) IncrementUses(_ context.Context, code string) error {
	m.incrementCode = code
	return m.incrementErr
}

func TestRepoValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name      string
		repo      *mockCouponRepo
		code      string
		subtotal  money.Cents
		wantValue money.Cents
		wantErr   error
	}{
		{
			name: "valid flat coupon",
			repo: &mockCouponRepo{
				rule: &Rule{Code: "NAMMOS10", Value: 800, MinOrder: 3000, Description: "R$8 off"},
			},
			code:      "NAMMOS10",
			subtotal:  6680,
			wantValue: 800,
		},
		{
			name:     "unknown code",
			repo:     &mockCouponRepo{err: ErrNotFound},
			code:     "INVALID",
			subtotal: 6680,
			wantErr:  ErrNotFound,
		},
		{
			name: "subtotal below minimum order",
			repo: &mockCouponRepo{
				rule: &Rule{Code: "WELCOME", Value: 1500, MinOrder: 4000},
			},
			code:     "WELCOME",
			subtotal: 2500,
			wantErr:  ErrMinOrderNotMet,
		},
		{
			name: "subtotal exactly at minimum order",
			repo: &mockCouponRepo{
				rule: &Rule{Code: "WELCOME", Value: 1500, MinOrder: 4000},
			},
			code:      "WELCOME",
			subtotal:  4000,
			wantValue: 1500,
		},
		{
			name: "expired coupon",
			repo: &mockCouponRepo{
				rule: &Rule{Code: "NATAL23", Value: 2000, ValidUntil: &pastTime},
			},
			code:     "NATAL23",
			subtotal: 6680,
			wantErr:  ErrExpired,
		},
		{
			name: "coupon not yet valid",
			repo: &mockCouponRepo{
				rule: &Rule{Code: "BLACKFRIDAY", Value: 2000, ValidFrom: &futureTime},
			},
			code:     "BLACKFRIDAY",
			subtotal: 6680,
			wantErr:  ErrExpired,
		},
		{
			name: "usage limit reached",
			repo: &mockCouponRepo{
				rule: &Rule{Code: "WELCOME", Value: 1500, MaxUses: 1, Uses: 1},
			},
			code:     "WELCOME",
			subtotal: 6680,
			wantErr:  ErrUsageLimitReached,
		},
		{
			name:     "blank code",
			repo:     &mockCouponRepo{},
			code:     "   ",
			subtotal: 6680,
			wantErr:  ErrNotFound,
		},
		{
			name:     "repository failure is wrapped, not classified invalid",
			repo:     &mockCouponRepo{err: errors.New("connection refused")},
			code:     "NAMMOS10",
			subtotal: 6680,
			wantErr:  nil, // checked separately below
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewRepoValidator(tt.repo)
			v.now = func() time.Time { return fixedNow }

			d, err := v.Validate(context.Background(), tt.code, tt.subtotal)

			if tt.name == "repository failure is wrapped, not classified invalid" {
				require.Error(t, err)
				assert.False(t, IsInvalid(err))
				return
			}

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsInvalid(err))
				assert.Empty(t, tt.repo.incrementCode, "rejected coupons must not consume uses")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, d.Value)
			assert.Equal(t, tt.repo.rule.Code, tt.repo.incrementCode)
		})
	}
}

func TestRepoValidator_NormalizesCode(t *testing.T) {
	repo := &mockCouponRepo{
		rule: &Rule{Code: "NAMMOS10", Value: 800},
	}
	v := NewRepoValidator(repo)

	d, err := v.Validate(context.Background(), "  nammos10 ", 6680)
	require.NoError(t, err)
	assert.Equal(t, "NAMMOS10", repo.lookedUpCode)
	assert.Equal(t, "NAMMOS10", d.Code)
}
