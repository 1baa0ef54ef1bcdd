package services

import (
	"math"

	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/pkg/models"
)

const (
	kmPerDegree = 111.0
	// neutralBoost is the multiplier for any pair missing from a table.
	neutralBoost = 1.0
)

// BoostTable maps a situation key (time bucket or weather) and a cuisine to
// a multiplier. Lookups that miss return 1.0.
type BoostTable struct {
	entries map[string]map[string]float64
}

func NewBoostTable(raw map[string]map[string]float64) BoostTable {
	entries := make(map[string]map[string]float64, len(raw))
	for key, row := range raw {
		k := CanonicalCuisine(key)
		if entries[k] == nil {
			entries[k] = make(map[string]float64, len(row))
		}
		for cuisine, m := range row {
			entries[k][CanonicalCuisine(cuisine)] = m
		}
	}
	return BoostTable{entries: entries}
}

func (t BoostTable) Multiplier(key, cuisine string) float64 {
	row, ok := t.entries[CanonicalCuisine(key)]
	if !ok {
		return neutralBoost
	}
	if m, ok := row[CanonicalCuisine(cuisine)]; ok {
		return m
	}
	return neutralBoost
}

// ContextualScorer produces a multiplicative boost from time of day,
// weather and distance.
type ContextualScorer struct {
	timeBoosts    BoostTable
	weatherBoosts BoostTable
	decayKm       float64
	popularity    float64
}

func NewContextualScorer(config config.ContextConfig) *ContextualScorer {
	return &ContextualScorer{
		timeBoosts:    NewBoostTable(config.TimeBoosts),
		weatherBoosts: NewBoostTable(config.WeatherBoosts),
		decayKm:       config.DistanceDecayKm,
		popularity:    config.PopularityBoost,
	}
}

// Score computes the boost for a restaurant seen from userLocation.
func (s *ContextualScorer) Score(restaurant *models.Restaurant, reqCtx models.RequestContext, userLocation models.GeoPoint) float64 {
	return s.ScoreAt(restaurant, reqCtx, DistanceKm(userLocation, restaurant.Location))
}

// ScoreAt computes the boost for an already known distance.
func (s *ContextualScorer) ScoreAt(restaurant *models.Restaurant, reqCtx models.RequestContext, distanceKm float64) float64 {
	boost := neutralBoost
	boost *= s.TimeMultiplier(reqCtx.TimeBucket, restaurant.Cuisine)
	boost *= s.WeatherMultiplier(reqCtx.Weather, restaurant.Cuisine)
	boost *= s.DistanceFactor(distanceKm)
	boost *= 1 + s.popularity*restaurant.PopularityScore
	return boost
}

func (s *ContextualScorer) TimeMultiplier(bucket models.TimeBucket, cuisine string) float64 {
	return s.timeBoosts.Multiplier(string(bucket), cuisine)
}

func (s *ContextualScorer) WeatherMultiplier(weather models.Weather, cuisine string) float64 {
	return s.weatherBoosts.Multiplier(string(weather), cuisine)
}

// DistanceFactor decays exponentially: 1.0 at 0 km, 1/e at the decay constant.
func (s *ContextualScorer) DistanceFactor(distanceKm float64) float64 {
	return math.Exp(-distanceKm / s.decayKm)
}

// DistanceKm uses a flat-earth approximation scaled at the user's latitude.
// It is not a geodesic distance and is only meant for short ranges.
func DistanceKm(user, restaurant models.GeoPoint) float64 {
	latKm := (restaurant.Lat - user.Lat) * kmPerDegree
	lonKm := (restaurant.Lon - user.Lon) * kmPerDegree * math.Cos(user.Lat*math.Pi/180)
	return math.Sqrt(latKm*latKm + lonKm*lonKm)
}
