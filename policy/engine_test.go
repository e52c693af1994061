package policy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
)

func TestEngineTier(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }

	cases := []struct {
		name string
		user *domain.UserInfo
		want domain.Tier
	}{
		{"anonymous", nil, domain.TierStandard},
		{"empty id", &domain.UserInfo{StripePriceID: "price_1"}, domain.TierStandard},
		{"no subscription", &domain.UserInfo{ID: "u1"}, domain.TierStandard},
		{
			"active subscription",
			&domain.UserInfo{ID: "u1", StripePriceID: "price_1", StripeCurrentPeriodEnd: now.Add(48 * time.Hour).UnixMilli()},
			domain.TierElevated,
		},
		{
			"inside grace day",
			&domain.UserInfo{ID: "u1", StripePriceID: "price_1", StripeCurrentPeriodEnd: now.Add(-12 * time.Hour).UnixMilli()},
			domain.TierElevated,
		},
		{
			"expired",
			&domain.UserInfo{ID: "u1", StripePriceID: "price_1", StripeCurrentPeriodEnd: now.Add(-48 * time.Hour).UnixMilli()},
			domain.TierStandard,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tier, err := engine.Tier(ctx, tc.user)
			require.NoError(t, err)
			assert.Equal(t, tc.want, tier)
		})
	}
}

func TestNewEngineRejectsBadPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package search_policy\n tier := ")
	assert.Error(t, err)
}
