package services

import (
	"math"
	"time"

	"github.com/temcen/dinerank/pkg/models"
)

const (
	frequencyWeight    = 0.4
	satisfactionWeight = 0.3
	recencyWeight      = 0.3
	recencyHalfLife    = 30.0 // days, e-folding
)

// InteractionStats aggregates a user's orders at one restaurant.
type InteractionStats struct {
	UserID        string
	RestaurantID  string
	OrderCount    int
	AvgUserRating float64 // 0 when the user never rated
	LastOrderAt   time.Time
}

// InteractionWeight combines order frequency, satisfaction and recency.
// It grows with the order count and decays with time since the last order.
func InteractionWeight(stats InteractionStats, now time.Time) float64 {
	if stats.OrderCount <= 0 {
		return 0
	}

	days := now.Sub(stats.LastOrderAt).Hours() / 24
	if days < 0 {
		days = 0
	}

	return frequencyWeight*math.Log1p(float64(stats.OrderCount)) +
		satisfactionWeight*clamp01(stats.AvgUserRating/5.0) +
		recencyWeight*math.Exp(-days/recencyHalfLife)
}

// BuildInteractionVectors groups stats per user into sparse vectors.
func BuildInteractionVectors(stats []InteractionStats, now time.Time) map[string]models.InteractionVector {
	vectors := make(map[string]models.InteractionVector)
	for _, st := range stats {
		w := InteractionWeight(st, now)
		if w <= 0 {
			continue
		}
		vec, ok := vectors[st.UserID]
		if !ok {
			vec = make(models.InteractionVector)
			vectors[st.UserID] = vec
		}
		vec[st.RestaurantID] += w
	}
	return vectors
}
