package config

import (
	"os"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRankingConfig(t *testing.T) {
	cfg := DefaultRankingConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.DefaultCount)
	assert.Equal(t, 3, cfg.MinOrdersForCF)
	assert.Equal(t, 30, cfg.Collaborative.Neighbors)
	assert.Equal(t, 3, cfg.Diversity.MaxPerCuisine)
	assert.True(t, cfg.Filters.ExcludeOrdered)
	assert.Zero(t, cfg.Context.PopularityBoost)
	assert.InDelta(t, 1.0, cfg.Weights.Full.Collaborative+cfg.Weights.Full.Content+cfg.Weights.Full.Contextual, 1e-9)
	assert.InDelta(t, 1.0, cfg.Weights.ColdStart.Content+cfg.Weights.ColdStart.Contextual, 1e-9)
	assert.Equal(t, 1.4, cfg.Context.TimeBoosts["dinner"]["Biryani"])
	assert.Equal(t, 0.6, cfg.Context.WeatherBoosts["rainy"]["Street Food"])
}

func TestRankingConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *RankingConfig)
		wantErr string
	}{
		{
			name:    "cold start collaborative weight",
			mutate:  func(c *RankingConfig) { c.Weights.ColdStart.Collaborative = 0.1 },
			wantErr: "cold_start.collaborative must be 0",
		},
		{
			name:    "relaxed radius below strict radius",
			mutate:  func(c *RankingConfig) { c.Filters.RelaxedDistanceKm = 5 },
			wantErr: "relaxed_distance_km",
		},
		{
			name:    "no neighbors",
			mutate:  func(c *RankingConfig) { c.Collaborative.Neighbors = 0 },
			wantErr: "collaborative.neighbors",
		},
		{
			name:    "negative content weight",
			mutate:  func(c *RankingConfig) { c.Content.Weights.Price = -0.1 },
			wantErr: "content weights",
		},
		{
			name:    "negative popularity boost",
			mutate:  func(c *RankingConfig) { c.Context.PopularityBoost = -0.2 },
			wantErr: "popularity_boost",
		},
		{
			name:    "zero diversity cap",
			mutate:  func(c *RankingConfig) { c.Diversity.MaxPerCuisine = 0 },
			wantErr: "max_per_cuisine",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRankingConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadAppliesRankingDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 0.35, cfg.Ranking.Weights.Full.Content)
	assert.Equal(t, 10.0, cfg.Ranking.Filters.MaxDistanceKm)
	assert.True(t, cfg.Ranking.Filters.ExcludeOrdered)
	assert.Equal(t, "@every 1h", cfg.Ranking.Collaborative.RefreshSchedule)
	assert.Equal(t, DefaultRankingConfig().RequestTimeout, cfg.Ranking.RequestTimeout)
	assert.Len(t, cfg.Ranking.Context.TimeBoosts, 4)
	assert.Equal(t, 1.5, lookupFold(cfg.Ranking.Context.TimeBoosts["late_night"], "fast food"))
}

func lookupFold(m map[string]float64, key string) float64 {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return 0
}
