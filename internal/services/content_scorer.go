package services

import (
	"math"

	"github.com/temcen/dinerank/internal/config"
	"github.com/temcen/dinerank/pkg/models"
)

// ContentScorer matches restaurant attributes against a user profile.
// It holds no state besides its policy and is safe for concurrent use.
type ContentScorer struct {
	config config.ContentConfig
}

func NewContentScorer(config config.ContentConfig) *ContentScorer {
	return &ContentScorer{config: config}
}

// Score returns a value in [0,1]. Restaurants without reviews are scored on
// cuisine, price and delivery alone, rescaled to the full weight.
func (s *ContentScorer) Score(profile *models.UserProfile, restaurant *models.Restaurant) float64 {
	w := s.config.Weights

	total := w.Cuisine + w.Price + w.Rating + w.Delivery
	if total == 0 {
		return 0
	}

	score := w.Cuisine*s.cuisineMatch(profile, restaurant) +
		w.Price*s.priceMatch(profile, restaurant) +
		w.Delivery*s.deliveryEfficiency(restaurant)

	if restaurant.HasReliableRating() {
		return clamp01(score + w.Rating*ratingNorm(restaurant))
	}

	partial := total - w.Rating
	if partial == 0 {
		return 0
	}
	return clamp01(score * total / partial)
}

func (s *ContentScorer) cuisineMatch(profile *models.UserProfile, restaurant *models.Restaurant) float64 {
	if profile.FavoriteCuisine == "" {
		return 0
	}
	if CanonicalCuisine(profile.FavoriteCuisine) == CanonicalCuisine(restaurant.Cuisine) {
		return 1
	}
	return 0
}

func (s *ContentScorer) priceMatch(profile *models.UserProfile, restaurant *models.Restaurant) float64 {
	preferred := profile.PriceTier
	if preferred <= 0 {
		preferred = s.config.DefaultPriceTier
	}
	return math.Max(0, 1-math.Abs(float64(restaurant.PriceTier)-preferred)/3)
}

func (s *ContentScorer) deliveryEfficiency(restaurant *models.Restaurant) float64 {
	return clamp01(1 - (restaurant.AvgDeliveryMinutes-s.config.DeliveryBaselineMinutes)/s.config.DeliverySpanMinutes)
}

func ratingNorm(restaurant *models.Restaurant) float64 {
	return clamp01(restaurant.AvgRating / 5.0)
}
