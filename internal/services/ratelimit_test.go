package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitService_TierLimits(t *testing.T) {
	service := NewRateLimitService(testAuthConfig(), newTestLogger(), nil)

	tests := []struct {
		tier  string
		limit int
	}{
		{"free", 100},
		{"", 100},
		{"premium", 1000},
		{"enterprise", 10000},
	}

	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			info, err := service.CheckLimit(context.Background(), "u1", tt.tier)
			require.NoError(t, err)
			assert.Equal(t, tt.limit, info.Limit)
		})
	}
}

func TestRateLimitService_WithoutRedisAllowsEverything(t *testing.T) {
	service := NewRateLimitService(testAuthConfig(), newTestLogger(), nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, info, err := service.IsAllowed(ctx, "u1", "free")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, info.Limit, info.Remaining)
	}

	allowed, info := service.AllowAction(ctx, "admin", ActionSnapshotRefresh, 1)
	assert.True(t, allowed)
	assert.Equal(t, 1, info.Limit)
	assert.Greater(t, info.ResetTime, int64(0))
}
