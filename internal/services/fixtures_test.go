package services

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/pkg/models"
)

// Bangalore city centre; restaurant fixtures are placed relative to it.
var testOrigin = models.GeoPoint{Lat: 12.9716, Lon: 77.5946}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func testRankingConfig() config.RankingConfig {
	return config.DefaultRankingConfig()
}

// northOf places a point kmNorth kilometres due north of testOrigin.
func northOf(kmNorth float64) models.GeoPoint {
	return models.GeoPoint{Lat: testOrigin.Lat + kmNorth/kmPerDegree, Lon: testOrigin.Lon}
}

type restaurantOption func(*models.Restaurant)

func withRating(rating float64, reviews int) restaurantOption {
	return func(r *models.Restaurant) {
		r.AvgRating = rating
		r.ReviewCount = reviews
	}
}

func withDistance(km float64) restaurantOption {
	return func(r *models.Restaurant) { r.Location = northOf(km) }
}

func withDelivery(minutes float64) restaurantOption {
	return func(r *models.Restaurant) { r.AvgDeliveryMinutes = minutes }
}

func withPrice(tier int) restaurantOption {
	return func(r *models.Restaurant) { r.PriceTier = tier }
}

func withPopularity(score float64) restaurantOption {
	return func(r *models.Restaurant) { r.PopularityScore = score }
}

func vegOnly() restaurantOption {
	return func(r *models.Restaurant) { r.IsVegOnly = true }
}

func closed() restaurantOption {
	return func(r *models.Restaurant) { r.IsAcceptingOrders = false }
}

// newRestaurant builds an open restaurant 1 km away with a solid rating.
func newRestaurant(id, cuisine string, opts ...restaurantOption) models.Restaurant {
	r := models.Restaurant{
		ID:                 id,
		Name:               "Restaurant " + id,
		Cuisine:            cuisine,
		AvgRating:          4.2,
		ReviewCount:        120,
		PriceTier:          2,
		AvgDeliveryMinutes: 35,
		IsAcceptingOrders:  true,
		Location:           northOf(1),
		PopularityScore:    0.5,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func newProfile(userID string, orders int) *models.UserProfile {
	return &models.UserProfile{
		UserID:         userID,
		OrderCount:     orders,
		Dietary:        models.DietNone,
		PriceTier:      2.5,
		Location:       testOrigin,
		CuisineHistory: map[string]int{},
	}
}

func ids(items []RankedCandidate) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Restaurant.ID
	}
	return out
}
