package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/temcen/dinerank/pkg/models"
)

func TestContextualScorer_DistanceFactor(t *testing.T) {
	scorer := NewContextualScorer(testRankingConfig().Context)

	assert.InDelta(t, 1.0, scorer.DistanceFactor(0), 1e-12)
	assert.InDelta(t, 0.3679, scorer.DistanceFactor(3), 1e-4)
	assert.InDelta(t, math.Exp(-2), scorer.DistanceFactor(6), 1e-12)
}

func TestContextualScorer_Multipliers(t *testing.T) {
	scorer := NewContextualScorer(testRankingConfig().Context)

	tests := []struct {
		name     string
		bucket   models.TimeBucket
		weather  models.Weather
		cuisine  string
		expected float64
	}{
		{"dinner biryani", models.TimeDinner, models.WeatherClear, "Biryani", 1.4},
		{"late night fast food in rain", models.TimeLateNight, models.WeatherRainy, "Fast Food", 1.5 * 1.3},
		{"rain dampens street food", models.TimeLunch, models.WeatherRainy, "Street Food", 0.6},
		{"hot weather beverages at breakfast", models.TimeBreakfast, models.WeatherHot, "Beverages", 1.3 * 1.5},
		{"cuisine missing from tables", models.TimeDinner, models.WeatherCold, "Japanese", 1.0},
		{"case-insensitive lookup", models.TimeDinner, models.WeatherClear, "north indian", 1.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRestaurant("r1", tt.cuisine)
			reqCtx := models.RequestContext{TimeBucket: tt.bucket, Weather: tt.weather}

			assert.InDelta(t, tt.expected, scorer.ScoreAt(&r, reqCtx, 0), 1e-12)
		})
	}
}

func TestContextualScorer_ScoreUsesDistance(t *testing.T) {
	scorer := NewContextualScorer(testRankingConfig().Context)
	r := newRestaurant("r1", "Chinese", withDistance(3))
	reqCtx := models.RequestContext{TimeBucket: models.TimeDinner, Weather: models.WeatherRainy}

	expected := 1.2 * 1.2 * math.Exp(-1)
	assert.InDelta(t, expected, scorer.Score(&r, reqCtx, testOrigin), 1e-6)
}

func TestContextualScorer_PopularityBoost(t *testing.T) {
	cfg := testRankingConfig().Context
	r := newRestaurant("r1", "Cafe", withPopularity(0.5))
	reqCtx := models.RequestContext{TimeBucket: models.TimeLunch, Weather: models.WeatherClear}

	assert.InDelta(t, 1.0, NewContextualScorer(cfg).ScoreAt(&r, reqCtx, 0), 1e-12)

	cfg.PopularityBoost = 0.2
	assert.InDelta(t, 1.1, NewContextualScorer(cfg).ScoreAt(&r, reqCtx, 0), 1e-12)
}

func TestBoostTable_UnknownKey(t *testing.T) {
	table := NewBoostTable(map[string]map[string]float64{"dinner": {"Chinese": 1.2}})

	assert.Equal(t, 1.0, table.Multiplier("brunch", "Chinese"))
	assert.Equal(t, 1.0, table.Multiplier("dinner", "Thai"))
	assert.Equal(t, 1.2, table.Multiplier("DINNER", "chinese"))
}

func TestDistanceKm(t *testing.T) {
	t.Run("same point", func(t *testing.T) {
		assert.Equal(t, 0.0, DistanceKm(testOrigin, testOrigin))
	})

	t.Run("due north", func(t *testing.T) {
		assert.InDelta(t, 5.0, DistanceKm(testOrigin, northOf(5)), 1e-9)
	})

	t.Run("longitude shrinks with latitude", func(t *testing.T) {
		user := models.GeoPoint{Lat: 60, Lon: 10}
		east := models.GeoPoint{Lat: 60, Lon: 10.01}
		assert.InDelta(t, 0.01*kmPerDegree*0.5, DistanceKm(user, east), 1e-9)
	})
}
