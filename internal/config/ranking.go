package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// RankingConfig is the single surface for every ranking policy constant.
// It is loaded once at startup and treated as read-only afterwards.
type RankingConfig struct {
	DefaultCount      int                 `mapstructure:"default_count"`
	MaxCount          int                 `mapstructure:"max_count"`
	MinOrdersForCF    int                 `mapstructure:"min_orders_for_collaborative"`
	CandidateRadiusKm float64             `mapstructure:"candidate_radius_km"`
	RequestTimeout    time.Duration       `mapstructure:"request_timeout"`
	Weights           HybridWeights       `mapstructure:"weights"`
	Content           ContentConfig       `mapstructure:"content"`
	Collaborative     CollaborativeConfig `mapstructure:"collaborative"`
	Context           ContextConfig       `mapstructure:"context"`
	Filters           FilterConfig        `mapstructure:"filters"`
	Diversity         DiversityConfig     `mapstructure:"diversity"`
	Explanation       ExplanationConfig   `mapstructure:"explanation"`
	Caching           CachingConfig       `mapstructure:"caching"`
}

// HybridWeights holds one weight tuple per eligibility state.
type HybridWeights struct {
	Full      ComponentWeights `mapstructure:"full"`
	ColdStart ComponentWeights `mapstructure:"cold_start"`
}

type ComponentWeights struct {
	Collaborative float64 `mapstructure:"collaborative"`
	Content       float64 `mapstructure:"content"`
	Contextual    float64 `mapstructure:"contextual"`
}

type ContentConfig struct {
	Weights                 ContentWeights `mapstructure:"weights"`
	DefaultPriceTier        float64        `mapstructure:"default_price_tier"`
	DeliveryBaselineMinutes float64        `mapstructure:"delivery_baseline_minutes"`
	DeliverySpanMinutes     float64        `mapstructure:"delivery_span_minutes"`
}

type ContentWeights struct {
	Cuisine  float64 `mapstructure:"cuisine"`
	Price    float64 `mapstructure:"price"`
	Rating   float64 `mapstructure:"rating"`
	Delivery float64 `mapstructure:"delivery"`
}

type CollaborativeConfig struct {
	Neighbors       int    `mapstructure:"neighbors"`
	Workers         int    `mapstructure:"workers"`
	RefreshSchedule string `mapstructure:"refresh_schedule"`
	PublishGraph    bool   `mapstructure:"publish_graph"`
}

// ContextConfig carries the boost tables keyed by time bucket or weather,
// then by cuisine. Keys are matched after cuisine canonicalization.
type ContextConfig struct {
	DistanceDecayKm float64                       `mapstructure:"distance_decay_km"`
	PopularityBoost float64                       `mapstructure:"popularity_boost"`
	TimeBoosts      map[string]map[string]float64 `mapstructure:"time_boosts"`
	WeatherBoosts   map[string]map[string]float64 `mapstructure:"weather_boosts"`
}

type FilterConfig struct {
	MinRating         float64 `mapstructure:"min_rating"`
	MaxDistanceKm     float64 `mapstructure:"max_distance_km"`
	RelaxedDistanceKm float64 `mapstructure:"relaxed_distance_km"`
	// ExcludeOrdered drops restaurants the user has ordered from before
	// any hard filter or relaxation runs.
	ExcludeOrdered bool `mapstructure:"exclude_ordered"`
}

type DiversityConfig struct {
	MaxPerCuisine int `mapstructure:"max_per_cuisine"`
}

type ExplanationConfig struct {
	HighRatingThreshold  float64 `mapstructure:"high_rating_threshold"`
	QuickDeliveryMinutes float64 `mapstructure:"quick_delivery_minutes"`
	MinNeighborSupport   int     `mapstructure:"min_neighbor_support"`
	MaxSupporting        int     `mapstructure:"max_supporting"`
}

type CachingConfig struct {
	RecommendationsTTL time.Duration `mapstructure:"recommendations_ttl"`
	PopularTTL         time.Duration `mapstructure:"popular_ttl"`
}

// DefaultRankingConfig returns the built-in ranking policy.
func DefaultRankingConfig() RankingConfig {
	return RankingConfig{
		DefaultCount:      10,
		MaxCount:          50,
		MinOrdersForCF:    3,
		CandidateRadiusKm: 25,
		RequestTimeout:    300 * time.Millisecond,
		Weights: HybridWeights{
			Full:      ComponentWeights{Collaborative: 0.40, Content: 0.35, Contextual: 0.25},
			ColdStart: ComponentWeights{Collaborative: 0, Content: 0.75, Contextual: 0.25},
		},
		Content: ContentConfig{
			Weights:                 ContentWeights{Cuisine: 0.40, Price: 0.25, Rating: 0.20, Delivery: 0.15},
			DefaultPriceTier:        2.5,
			DeliveryBaselineMinutes: 20,
			DeliverySpanMinutes:     40,
		},
		Collaborative: CollaborativeConfig{
			Neighbors:       30,
			Workers:         4,
			RefreshSchedule: "@every 1h",
			PublishGraph:    true,
		},
		Context: ContextConfig{
			DistanceDecayKm: 3.0,
			TimeBoosts: map[string]map[string]float64{
				"breakfast":  {"South Indian": 1.3, "Cafe": 1.4, "Fast Food": 1.2, "Beverages": 1.3},
				"lunch":      {"North Indian": 1.2, "South Indian": 1.2, "Biryani": 1.3, "Chinese": 1.1},
				"dinner":     {"North Indian": 1.3, "Biryani": 1.4, "Chinese": 1.2, "Continental": 1.1},
				"late_night": {"Fast Food": 1.5, "Street Food": 1.4, "Chinese": 1.2},
			},
			WeatherBoosts: map[string]map[string]float64{
				"rainy": {"Street Food": 0.6, "Fast Food": 1.3, "Chinese": 1.2},
				"hot":   {"Beverages": 1.5, "Desserts": 1.3, "South Indian": 1.1},
			},
		},
		Filters: FilterConfig{
			MinRating:         3.0,
			MaxDistanceKm:     10,
			RelaxedDistanceKm: 15,
			ExcludeOrdered:    true,
		},
		Diversity: DiversityConfig{MaxPerCuisine: 3},
		Explanation: ExplanationConfig{
			HighRatingThreshold:  4.0,
			QuickDeliveryMinutes: 30,
			MinNeighborSupport:   3,
			MaxSupporting:        2,
		},
		Caching: CachingConfig{
			RecommendationsTTL: 10 * time.Minute,
			PopularTTL:         30 * time.Minute,
		},
	}
}

func setRankingDefaults(d RankingConfig) {
	viper.SetDefault("ranking.default_count", d.DefaultCount)
	viper.SetDefault("ranking.max_count", d.MaxCount)
	viper.SetDefault("ranking.min_orders_for_collaborative", d.MinOrdersForCF)
	viper.SetDefault("ranking.candidate_radius_km", d.CandidateRadiusKm)
	viper.SetDefault("ranking.request_timeout", d.RequestTimeout)

	viper.SetDefault("ranking.weights.full.collaborative", d.Weights.Full.Collaborative)
	viper.SetDefault("ranking.weights.full.content", d.Weights.Full.Content)
	viper.SetDefault("ranking.weights.full.contextual", d.Weights.Full.Contextual)
	viper.SetDefault("ranking.weights.cold_start.collaborative", d.Weights.ColdStart.Collaborative)
	viper.SetDefault("ranking.weights.cold_start.content", d.Weights.ColdStart.Content)
	viper.SetDefault("ranking.weights.cold_start.contextual", d.Weights.ColdStart.Contextual)

	viper.SetDefault("ranking.content.weights.cuisine", d.Content.Weights.Cuisine)
	viper.SetDefault("ranking.content.weights.price", d.Content.Weights.Price)
	viper.SetDefault("ranking.content.weights.rating", d.Content.Weights.Rating)
	viper.SetDefault("ranking.content.weights.delivery", d.Content.Weights.Delivery)
	viper.SetDefault("ranking.content.default_price_tier", d.Content.DefaultPriceTier)
	viper.SetDefault("ranking.content.delivery_baseline_minutes", d.Content.DeliveryBaselineMinutes)
	viper.SetDefault("ranking.content.delivery_span_minutes", d.Content.DeliverySpanMinutes)

	viper.SetDefault("ranking.collaborative.neighbors", d.Collaborative.Neighbors)
	viper.SetDefault("ranking.collaborative.workers", d.Collaborative.Workers)
	viper.SetDefault("ranking.collaborative.refresh_schedule", d.Collaborative.RefreshSchedule)
	viper.SetDefault("ranking.collaborative.publish_graph", d.Collaborative.PublishGraph)

	viper.SetDefault("ranking.context.distance_decay_km", d.Context.DistanceDecayKm)
	viper.SetDefault("ranking.context.popularity_boost", d.Context.PopularityBoost)
	viper.SetDefault("ranking.context.time_boosts", d.Context.TimeBoosts)
	viper.SetDefault("ranking.context.weather_boosts", d.Context.WeatherBoosts)

	viper.SetDefault("ranking.filters.min_rating", d.Filters.MinRating)
	viper.SetDefault("ranking.filters.max_distance_km", d.Filters.MaxDistanceKm)
	viper.SetDefault("ranking.filters.relaxed_distance_km", d.Filters.RelaxedDistanceKm)
	viper.SetDefault("ranking.filters.exclude_ordered", d.Filters.ExcludeOrdered)

	viper.SetDefault("ranking.diversity.max_per_cuisine", d.Diversity.MaxPerCuisine)

	viper.SetDefault("ranking.explanation.high_rating_threshold", d.Explanation.HighRatingThreshold)
	viper.SetDefault("ranking.explanation.quick_delivery_minutes", d.Explanation.QuickDeliveryMinutes)
	viper.SetDefault("ranking.explanation.min_neighbor_support", d.Explanation.MinNeighborSupport)
	viper.SetDefault("ranking.explanation.max_supporting", d.Explanation.MaxSupporting)

	viper.SetDefault("ranking.caching.recommendations_ttl", d.Caching.RecommendationsTTL)
	viper.SetDefault("ranking.caching.popular_ttl", d.Caching.PopularTTL)
}

// Validate rejects policy combinations the ranker cannot honor.
func (c RankingConfig) Validate() error {
	var errs []error

	if c.DefaultCount <= 0 || c.MaxCount < c.DefaultCount {
		errs = append(errs, fmt.Errorf("ranking: default_count %d must be positive and not exceed max_count %d", c.DefaultCount, c.MaxCount))
	}
	if c.MinOrdersForCF < 0 {
		errs = append(errs, errors.New("ranking: min_orders_for_collaborative must not be negative"))
	}
	if c.Collaborative.Neighbors <= 0 {
		errs = append(errs, errors.New("ranking: collaborative.neighbors must be positive"))
	}
	for name, w := range map[string]ComponentWeights{"full": c.Weights.Full, "cold_start": c.Weights.ColdStart} {
		if w.Collaborative < 0 || w.Content < 0 || w.Contextual < 0 {
			errs = append(errs, fmt.Errorf("ranking: weights.%s must not be negative", name))
		}
	}
	if c.Weights.ColdStart.Collaborative != 0 {
		errs = append(errs, errors.New("ranking: weights.cold_start.collaborative must be 0"))
	}
	cw := c.Content.Weights
	if cw.Cuisine < 0 || cw.Price < 0 || cw.Rating < 0 || cw.Delivery < 0 {
		errs = append(errs, errors.New("ranking: content weights must not be negative"))
	}
	if c.Content.DeliverySpanMinutes <= 0 {
		errs = append(errs, errors.New("ranking: content.delivery_span_minutes must be positive"))
	}
	if c.Context.DistanceDecayKm <= 0 {
		errs = append(errs, errors.New("ranking: context.distance_decay_km must be positive"))
	}
	if c.Context.PopularityBoost < 0 {
		errs = append(errs, errors.New("ranking: context.popularity_boost must not be negative"))
	}
	if c.Filters.RelaxedDistanceKm < c.Filters.MaxDistanceKm {
		errs = append(errs, fmt.Errorf("ranking: filters.relaxed_distance_km %.1f is below max_distance_km %.1f",
			c.Filters.RelaxedDistanceKm, c.Filters.MaxDistanceKm))
	}
	if c.Diversity.MaxPerCuisine <= 0 {
		errs = append(errs, errors.New("ranking: diversity.max_per_cuisine must be positive"))
	}

	return errors.Join(errs...)
}
